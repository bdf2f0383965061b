package records

import (
	"encoding/json"
	"fmt"
)

type jsonDecodeFunc func(data []byte, tag Tag) (Record, error)

var jsonDecoders = map[Tag]jsonDecodeFunc{
	TagConnectionStatus:          decodeJSON[ConnectionStatus],
	TagDeviceInfo:                decodeJSON[DeviceInfo],
	TagScheduleInfo:              decodeJSON[ScheduleInfo],
	TagMeterList:                 decodeJSON[MeterList],
	TagMeterInfo:                 decodeJSON[MeterInfo],
	TagNetworkInfo:               decodeJSON[NetworkInfo],
	TagTimeCluster:               decodeJSON[TimeCluster],
	TagMessageCluster:            decodeJSON[MessageCluster],
	TagPriceCluster:              decodeJSON[PriceCluster],
	TagInstantaneousDemand:       decodeJSON[InstantaneousDemand],
	TagCurrentSummationDelivered: decodeJSON[CurrentSummationDelivered],
	TagCurrentPeriodUsage:        decodeJSON[CurrentPeriodUsage],
	TagLastPeriodUsage:           decodeJSON[LastPeriodUsage],
	TagProfileData:               decodeJSON[ProfileData],
}

// FromJSON rebuilds a record published as JSON. The raw element is not part of
// the JSON form, so Field always misses on the result.
func FromJSON(tag Tag, data []byte) (Record, error) {
	decode, ok := jsonDecoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return decode(data, tag)
}

func (h *header) setTag(tag Tag) { h.tag = tag }

func decodeJSON[T Record](data []byte, tag Tag) (Record, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedField, err)
	}
	if s, ok := any(&v).(interface{ setTag(Tag) }); ok {
		s.setTag(tag)
	}
	return v, nil
}
