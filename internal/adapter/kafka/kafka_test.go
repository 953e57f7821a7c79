package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestMapMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("req-1"),
		Value:     []byte(`{"station":"OTT"}`),
		Topic:     "geomag-conversion-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("scheduler")},
		},
	}

	m := mapMessage(msg)

	assert.Equal(t, []byte("req-1"), m.Key)
	assert.JSONEq(t, `{"station":"OTT"}`, string(m.Value))
	assert.Equal(t, "geomag-conversion-requests", m.Topic)
	assert.Equal(t, 2, m.Partition)
	assert.Equal(t, int64(42), m.Offset)
	assert.Equal(t, now, m.Timestamp)
	assert.Equal(t, "scheduler", m.Headers["source"])
	assert.Nil(t, m.Commit)
}

func TestProductMessage(t *testing.T) {
	p := domain.Product{
		RequestID: "req-1",
		Filename:  "ott20190102vmin.min",
		Format:    "iaga2002",
		Network:   "C2",
		Station:   "OTT",
		Date:      time.Date(2019, time.January, 2, 0, 0, 0, 0, time.UTC),
		Data:      []byte(" Format                 IAGA-2002"),
	}

	msg := productMessage(p)

	assert.Equal(t, []byte("C2.OTT.iaga2002.2019-01-02"), msg.Key)
	assert.Equal(t, p.Data, msg.Value)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		HeaderFilename:  "ott20190102vmin.min",
		HeaderFormat:    "iaga2002",
		HeaderNetwork:   "C2",
		HeaderStation:   "OTT",
		HeaderDate:      "2019-01-02",
		HeaderRequestID: "req-1",
	}, headers)
}
