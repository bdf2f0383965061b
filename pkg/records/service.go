package records

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMalformedFragment = fmt.Errorf("malformed fragment")
	ErrUnknownTag        = fmt.Errorf("unknown tag")
	ErrMalformedField    = fmt.Errorf("malformed field")
)

// The device emits bare top-level elements with no enclosing document element.
const (
	syntheticRootOpen  = "<Root>"
	syntheticRootClose = "</Root>"
)

type decodeFunc func(d *decoder) Record

var decoders = map[Tag]decodeFunc{
	TagConnectionStatus:          decodeConnectionStatus,
	TagDeviceInfo:                decodeDeviceInfo,
	TagScheduleInfo:              decodeScheduleInfo,
	TagMeterList:                 decodeMeterList,
	TagMeterInfo:                 decodeMeterInfo,
	TagNetworkInfo:               decodeNetworkInfo,
	TagTimeCluster:               decodeTimeCluster,
	TagMessageCluster:            decodeMessageCluster,
	TagPriceCluster:              decodePriceCluster,
	TagInstantaneousDemand:       decodeInstantaneousDemand,
	TagCurrentSummationDelivered: decodeCurrentSummationDelivered,
	TagCurrentPeriodUsage:        decodeCurrentPeriodUsage,
	TagLastPeriodUsage:           decodeLastPeriodUsage,
	TagProfileData:               decodeProfileData,
}

// Known reports whether tag has a decoder.
func Known(tag Tag) bool {
	_, ok := decoders[tag]
	return ok
}

// Tags returns every known tag.
func Tags() []Tag {
	tags := make([]Tag, 0, len(decoders))
	for tag := range decoders {
		tags = append(tags, tag)
	}
	return tags
}

// ParseFragment parses a reassembled fragment and returns its top-level elements.
// A fragment may legitimately hold zero, one or several elements.
func ParseFragment(fragment string) ([]Element, error) {
	var root Element
	wrapped := syntheticRootOpen + fragment + syntheticRootClose
	if err := xml.Unmarshal([]byte(wrapped), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFragment, err)
	}
	return root.Children, nil
}

// Decode builds the record for a single top-level element.
func Decode(el Element) (rec Record, err error) {
	tag := Tag(el.XMLName.Local)
	decode, ok := decoders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}

	d := &decoder{el: &el}
	rec = decode(d)
	if d.err != nil {
		return nil, fmt.Errorf("%s: %w", tag, d.err)
	}
	return rec, nil
}

// DecodeFragment is ParseFragment followed by Decode for every known element.
// Unknown tags are skipped; the first field error aborts.
func DecodeFragment(fragment string) ([]Record, error) {
	elements, err := ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(elements))
	for _, el := range elements {
		if !Known(Tag(el.XMLName.Local)) {
			continue
		}
		rec, err := Decode(el)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (e *Element) find(name string) (string, bool) {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return e.Children[i].Text, true
		}
	}
	return "", false
}

func (e *Element) findAll(name string) []string {
	var out []string
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			out = append(out, e.Children[i].Text)
		}
	}
	return out
}

// decoder reads child values and keeps the first error.
type decoder struct {
	el  *Element
	err error
}

func (d *decoder) header() header {
	return header{
		tag:        Tag(d.el.XMLName.Local),
		DeviceMac:  d.text("DeviceMacId"),
		MeterMac:   d.text("MeterMacId"),
		rawElement: d.el,
	}
}

func (d *decoder) text(name string) string {
	v, _ := d.el.find(name)
	return strings.TrimSpace(v)
}

// hex reads a 0x-prefixed hex field. Missing or empty fields read as zero.
func (d *decoder) hex(name string) uint64 {
	raw := d.text(name)
	if raw == "" {
		return 0
	}
	v, err := ParseHex(raw)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("%w: %s=%q", ErrMalformedField, name, raw)
	}
	return v
}

func (d *decoder) scaled() Scaled {
	return Scaled{
		Multiplier:          d.hex("Multiplier"),
		Divisor:             d.hex("Divisor"),
		DigitsRight:         d.hex("DigitsRight"),
		DigitsLeft:          d.hex("DigitsLeft"),
		SuppressLeadingZero: d.text("SuppressLeadingZero"),
	}
}

// ParseHex parses a device hex value, with or without the 0x prefix.
func ParseHex(raw string) (uint64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 16, 64)
}

// SignedDemand reinterprets the low 32 bits of raw as two's complement.
func SignedDemand(raw uint64) int64 {
	return -int64(raw&0x80000000) | int64(raw&0x7fffffff)
}

// Scale computes round(value*multiplier/divisor, digitsRight). A zero divisor means
// the reading is unavailable and yields 0.
func (s Scaled) Scale(value float64) float64 {
	if s.Divisor == 0 {
		return 0
	}
	return roundTo(value*float64(s.Multiplier)/float64(s.Divisor), s.DigitsRight)
}

// roundTo rounds to digits places. Exact ties go to the even neighbour.
func roundTo(v float64, digits uint64) float64 {
	if digits > 15 {
		return v
	}
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(v*p) / p
}

// PriceDollars returns price/10^trailing, or nil for the NoPrice sentinel.
func PriceDollars(price, trailing uint64) *float64 {
	if price == NoPrice {
		return nil
	}
	v := float64(price) / math.Pow(10, float64(trailing))
	return &v
}

func decodeConnectionStatus(d *decoder) Record {
	return ConnectionStatus{
		header:        d.header(),
		Status:        d.text("Status"),
		Description:   d.text("Description"),
		StatusCode:    d.text("StatusCode"),
		ExtendedPanID: d.text("ExtPanId"),
		Channel:       d.text("Channel"),
		ShortAddress:  d.text("ShortAddr"),
		LinkStrength:  d.text("LinkStrength"),
	}
}

func decodeDeviceInfo(d *decoder) Record {
	return DeviceInfo{
		header:       d.header(),
		InstallCode:  d.text("InstallCode"),
		LinkKey:      d.text("LinkKey"),
		FWVersion:    d.text("FWVersion"),
		HWVersion:    d.text("HWVersion"),
		ImageType:    d.text("ImageType"),
		Manufacturer: d.text("Manufacturer"),
		ModelID:      d.text("ModelId"),
		DateCode:     d.text("DateCode"),
	}
}

func decodeScheduleInfo(d *decoder) Record {
	return ScheduleInfo{
		header:    d.header(),
		Event:     d.text("Event"),
		Frequency: d.text("Frequency"),
		Enabled:   d.text("Enabled"),
	}
}

func decodeMeterList(d *decoder) Record {
	macs := d.el.findAll("MeterMacId")
	for i := range macs {
		macs[i] = strings.TrimSpace(macs[i])
	}
	return MeterList{
		header:    d.header(),
		MeterMacs: macs,
	}
}

func decodeMeterInfo(d *decoder) Record {
	return MeterInfo{
		header:    d.header(),
		MeterType: d.text("MeterType"),
		NickName:  d.text("NickName"),
		Account:   d.text("Account"),
		Auth:      d.text("Auth"),
		Host:      d.text("Host"),
		Enabled:   d.text("Enabled"),
	}
}

func decodeNetworkInfo(d *decoder) Record {
	return NetworkInfo{
		header:         d.header(),
		CoordinatorMac: d.text("CoordMacId"),
		Status:         d.text("Status"),
		Description:    d.text("Description"),
		StatusCode:     d.text("StatusCode"),
		ExtendedPanID:  d.text("ExtPanId"),
		Channel:        d.text("Channel"),
		ShortAddress:   d.text("ShortAddr"),
		LinkStrength:   d.text("LinkStrength"),
	}
}

func decodeTimeCluster(d *decoder) Record {
	return TimeCluster{
		header:    d.header(),
		UTCTime:   d.hex("UTCTime"),
		LocalTime: d.hex("LocalTime"),
	}
}

func decodeMessageCluster(d *decoder) Record {
	return MessageCluster{
		header:               d.header(),
		TimeStamp:            d.hex("TimeStamp"),
		ID:                   d.text("Id"),
		Text:                 d.text("Text"),
		ConfirmationRequired: d.text("ConfirmationRequired"),
		Confirmed:            d.text("Confirmed"),
		Queue:                d.text("Queue"),
	}
}

func decodePriceCluster(d *decoder) Record {
	price := d.hex("Price")
	trailing := d.hex("TrailingDigits")
	return PriceCluster{
		header:         d.header(),
		TimeStamp:      d.hex("TimeStamp"),
		Price:          price,
		Currency:       d.text("Currency"),
		TrailingDigits: trailing,
		Tier:           d.text("Tier"),
		TierLabel:      d.text("TierLabel"),
		RateLabel:      d.text("RateLabel"),
		PriceDollars:   PriceDollars(price, trailing),
	}
}

func decodeInstantaneousDemand(d *decoder) Record {
	scaled := d.scaled()
	demand := SignedDemand(d.hex("Demand"))
	return InstantaneousDemand{
		header:    d.header(),
		Scaled:    scaled,
		TimeStamp: d.hex("TimeStamp"),
		Demand:    demand,
		Reading:   scaled.Scale(float64(demand)),
	}
}

func decodeCurrentSummationDelivered(d *decoder) Record {
	scaled := d.scaled()
	delivered := d.hex("SummationDelivered")
	received := d.hex("SummationReceived")
	return CurrentSummationDelivered{
		header:             d.header(),
		Scaled:             scaled,
		TimeStamp:          d.hex("TimeStamp"),
		SummationDelivered: delivered,
		SummationReceived:  received,
		Delivered:          scaled.Scale(float64(delivered)),
		Received:           scaled.Scale(float64(received)),
	}
}

func decodeCurrentPeriodUsage(d *decoder) Record {
	scaled := d.scaled()
	usage := d.hex("CurrentUsage")
	return CurrentPeriodUsage{
		header:       d.header(),
		Scaled:       scaled,
		TimeStamp:    d.hex("TimeStamp"),
		CurrentUsage: usage,
		StartDate:    d.hex("StartDate"),
		Reading:      scaled.Scale(float64(usage)),
	}
}

func decodeLastPeriodUsage(d *decoder) Record {
	scaled := d.scaled()
	usage := d.hex("LastUsage")
	return LastPeriodUsage{
		header:    d.header(),
		Scaled:    scaled,
		LastUsage: usage,
		StartDate: d.hex("StartDate"),
		EndDate:   d.hex("EndDate"),
		Reading:   scaled.Scale(float64(usage)),
	}
}

func decodeProfileData(d *decoder) Record {
	return ProfileData{
		header:          d.header(),
		EndTime:         d.text("EndTime"),
		Status:          d.text("Status"),
		PeriodInterval:  d.text("ProfileIntervalPeriod"),
		NumberOfPeriods: d.text("NumberOfPeriodsDelivered"),
		IntervalData:    d.el.findAll("IntervalData"),
	}
}
