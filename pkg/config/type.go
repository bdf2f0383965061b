package config

type MeterCollectorConfig struct {
	EmuAPIHost      string `toml:"emu_api_host"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	LogLevel        string `toml:"log_level"`
	RetentionMonths int    `toml:"retention_months"`
}

type EmuAPIConfig struct {
	SerialDevice string `toml:"serial_device"`
	Baudrate     uint   `toml:"baudrate"`
	// NetworkAddress reaches the device over TCP (host:port) instead of
	// SerialDevice when set.
	NetworkAddress string `toml:"network_address"`
	ListenAddress  string `toml:"listen_address"`
	ListenPort     int    `toml:"listen_port"`
	LogLevel       string `toml:"log_level"`

	PollIntervalSeconds     int `toml:"poll_interval_seconds"`
	ReconnectBackoffSeconds int `toml:"reconnect_backoff_seconds"`
	WriteThrottleMillis     int `toml:"write_throttle_millis"`

	MQTT MQTTConfig `toml:"mqtt"`
}

// MQTTConfig enables publishing records to a broker when Broker is set.
type MQTTConfig struct {
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	Retained    bool   `toml:"retained"`
}

// DeviceIdentity is what emu2_probe learned about the attached device.
type DeviceIdentity struct {
	Port         string `toml:"port"`
	DeviceMac    string `toml:"device_mac"`
	Manufacturer string `toml:"manufacturer"`
	ModelID      string `toml:"model_id"`
	FWVersion    string `toml:"fw_version"`
	HWVersion    string `toml:"hw_version"`
	DateCode     string `toml:"date_code"`
	ProbedAt     string `toml:"probed_at"`
}
