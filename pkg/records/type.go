package records

import "encoding/xml"

// Tag is the XML element name identifying a record kind on the wire.
type Tag string

const (
	// Raven notifications
	TagConnectionStatus Tag = "ConnectionStatus"
	TagDeviceInfo       Tag = "DeviceInfo"
	TagScheduleInfo     Tag = "ScheduleInfo"
	TagMeterList        Tag = "MeterList"

	// Meter notifications
	TagMeterInfo   Tag = "MeterInfo"
	TagNetworkInfo Tag = "NetworkInfo"

	// Time, message and price notifications
	TagTimeCluster    Tag = "TimeCluster"
	TagMessageCluster Tag = "MessageCluster"
	TagPriceCluster   Tag = "PriceCluster"

	// Simple metering notifications
	TagInstantaneousDemand       Tag = "InstantaneousDemand"
	TagCurrentSummationDelivered Tag = "CurrentSummationDelivered"
	TagCurrentPeriodUsage        Tag = "CurrentPeriodUsage"
	TagLastPeriodUsage           Tag = "LastPeriodUsage"
	TagProfileData               Tag = "ProfileData"
)

// NoPrice is the PriceCluster sentinel for "no price known".
const NoPrice = 0xffffffff

// Element is a generic parsed XML element.
type Element struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []Element `xml:",any"`
}

// Record is an immutable decoded notification.
type Record interface {
	Tag() Tag
	DeviceMAC() string
	// Field returns the raw text of a direct child element.
	Field(name string) (string, bool)
}

// header carries what every notification shares.
type header struct {
	tag        Tag
	DeviceMac  string   `json:"device_mac"`
	MeterMac   string   `json:"meter_mac,omitempty"`
	rawElement *Element // never mutated after decode
}

func (h header) Tag() Tag          { return h.tag }
func (h header) DeviceMAC() string { return h.DeviceMac }

func (h header) Field(name string) (string, bool) {
	if h.rawElement == nil {
		return "", false
	}
	return h.rawElement.find(name)
}

// Scaled is the multiplier/divisor/precision block shared by the metering notifications.
type Scaled struct {
	Multiplier          uint64 `json:"multiplier"`
	Divisor             uint64 `json:"divisor"`
	DigitsRight         uint64 `json:"digits_right"`
	DigitsLeft          uint64 `json:"digits_left"`
	SuppressLeadingZero string `json:"suppress_leading_zero,omitempty"`
}

type ConnectionStatus struct {
	header
	Status        string `json:"status"`
	Description   string `json:"description"`
	StatusCode    string `json:"status_code"`
	ExtendedPanID string `json:"extended_pan_id"`
	Channel       string `json:"channel"`
	ShortAddress  string `json:"short_address"`
	LinkStrength  string `json:"link_strength"`
}

type DeviceInfo struct {
	header
	InstallCode  string `json:"install_code"`
	LinkKey      string `json:"link_key"`
	FWVersion    string `json:"fw_version"`
	HWVersion    string `json:"hw_version"`
	ImageType    string `json:"image_type"`
	Manufacturer string `json:"manufacturer"`
	ModelID      string `json:"model_id"`
	DateCode     string `json:"date_code"`
}

type ScheduleInfo struct {
	header
	Event     string `json:"event"`
	Frequency string `json:"frequency"`
	Enabled   string `json:"enabled"`
}

// MeterList lists every meter the device is paired with. MeterMac holds the first one.
type MeterList struct {
	header
	MeterMacs []string `json:"meter_macs"`
}

type MeterInfo struct {
	header
	MeterType string `json:"meter_type"`
	NickName  string `json:"nickname"`
	Account   string `json:"account"`
	Auth      string `json:"auth"`
	Host      string `json:"host"`
	Enabled   string `json:"enabled"`
}

type NetworkInfo struct {
	header
	CoordinatorMac string `json:"coordinator_mac"`
	Status         string `json:"status"`
	Description    string `json:"description"`
	StatusCode     string `json:"status_code"`
	ExtendedPanID  string `json:"extended_pan_id"`
	Channel        string `json:"channel"`
	ShortAddress   string `json:"short_address"`
	LinkStrength   string `json:"link_strength"`
}

// TimeCluster times are seconds since the device epoch, see emuutils.DeviceTime.
type TimeCluster struct {
	header
	UTCTime   uint64 `json:"utc_time"`
	LocalTime uint64 `json:"local_time"`
}

type MessageCluster struct {
	header
	TimeStamp            uint64 `json:"timestamp"`
	ID                   string `json:"id"`
	Text                 string `json:"text"`
	ConfirmationRequired string `json:"confirmation_required"`
	Confirmed            string `json:"confirmed"`
	Queue                string `json:"queue"`
}

type PriceCluster struct {
	header
	TimeStamp      uint64 `json:"timestamp"`
	Price          uint64 `json:"price"`
	Currency       string `json:"currency"` // ISO-4217 numeric code
	TrailingDigits uint64 `json:"trailing_digits"`
	Tier           string `json:"tier"`
	TierLabel      string `json:"tier_label"`
	RateLabel      string `json:"rate_label"`
	// PriceDollars is nil when the device reports NoPrice.
	PriceDollars *float64 `json:"price_dollars"`
}

type InstantaneousDemand struct {
	header
	Scaled
	TimeStamp uint64 `json:"timestamp"`
	// Demand is the raw value reinterpreted as a signed 32-bit quantity.
	Demand  int64   `json:"demand"`
	Reading float64 `json:"reading"` // kW
}

type CurrentSummationDelivered struct {
	header
	Scaled
	TimeStamp          uint64  `json:"timestamp"`
	SummationDelivered uint64  `json:"summation_delivered"`
	SummationReceived  uint64  `json:"summation_received"`
	Delivered          float64 `json:"delivered"` // kWh
	Received           float64 `json:"received"`  // kWh
}

type CurrentPeriodUsage struct {
	header
	Scaled
	TimeStamp    uint64  `json:"timestamp"`
	CurrentUsage uint64  `json:"current_usage"`
	StartDate    uint64  `json:"start_date"`
	Reading      float64 `json:"reading"` // kWh
}

type LastPeriodUsage struct {
	header
	Scaled
	LastUsage uint64  `json:"last_usage"`
	StartDate uint64  `json:"start_date"`
	EndDate   uint64  `json:"end_date"`
	Reading   float64 `json:"reading"` // kWh
}

type ProfileData struct {
	header
	EndTime         string   `json:"end_time"`
	Status          string   `json:"status"`
	PeriodInterval  string   `json:"period_interval"`
	NumberOfPeriods string   `json:"number_of_periods"`
	IntervalData    []string `json:"interval_data"`
}
