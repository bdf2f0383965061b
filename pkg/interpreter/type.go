package interpreter

import (
	"encoding/json"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/rs/zerolog/log"
)

// Envelope is one record as broadcast on the emu2_api websocket.
type Envelope struct {
	Tag        records.Tag     `json:"tag"`
	ReceivedAt time.Time       `json:"received_at"`
	Record     json.RawMessage `json:"record"`
}

func NewEnvelope(rec records.Record, receivedAt time.Time) (*Envelope, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return &Envelope{Tag: rec.Tag(), ReceivedAt: receivedAt.UTC(), Record: data}, nil
}

func (e *Envelope) ToJsonBytes() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("tag", string(e.Tag)).Msg("failed to marshal envelope")
		return nil
	}
	return data
}

// Decode rebuilds the typed record carried by the envelope.
func (e *Envelope) Decode() (records.Record, error) {
	return records.FromJSON(e.Tag, e.Record)
}

// EnvelopeFromJsonBytes returns nil when data is not an envelope.
func EnvelopeFromJsonBytes(data []byte) *Envelope {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Tag == "" {
		return nil
	}
	return &env
}
