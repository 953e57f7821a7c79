//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/adapter/fdsn"
	"github.com/couchcryptid/geomag-etl/internal/adapter/kafka"
	"github.com/couchcryptid/geomag-etl/internal/config"
	"github.com/couchcryptid/geomag-etl/internal/convert"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
	"github.com/couchcryptid/geomag-etl/internal/mseed"
	"github.com/couchcryptid/geomag-etl/internal/observability"
	"github.com/couchcryptid/geomag-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testSourceTopic = "test-requests"
	testSinkTopic   = "test-products"
)

var testDay = time.Date(2019, time.January, 2, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// startKafka runs a single-node Kafka broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("geomag-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// fakeFDSN serves one day of OTT minute data as miniSEED and a station
// descriptor in FDSN text format.
func fakeFDSN(t *testing.T) *httptest.Server {
	t.Helper()
	var stream domain.Stream
	for i, ch := range []string{"UFX", "UFY", "UFZ", "UFF"} {
		samples := make([]float64, 1440)
		for j := range samples {
			samples[j] = float64(10000*(i+1) + j)
		}
		stream = append(stream, domain.Trace{
			Network:  "C2",
			Station:  "OTT",
			Location: "R0",
			Channel:  ch,
			Interval: time.Minute,
			Start:    testDay,
			Samples:  domain.Values(samples...),
		})
	}
	var data bytes.Buffer
	require.NoError(t, mseed.Encode(&data, stream))

	mux := http.NewServeMux()
	mux.HandleFunc("/fdsnws/dataselect/1/query", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("station") != "OTT" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Write(data.Bytes())
	})
	mux.HandleFunc("/fdsnws/station/1/query", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "#Network|Station|Latitude|Longitude|Elevation|SiteName|StartTime|EndTime")
		fmt.Fprintln(w, "C2|OTT|45.403|-75.552|75.0|Ottawa|1968-01-01T00:00:00|")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func publishRequests(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func requestMessage(t *testing.T, key string, req convert.Request) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(key), Value: payload}
}

// product is a message read back from the products topic.
type product struct {
	Key     string
	Data    string
	Headers map[string]string
}

func readProduct(ctx context.Context, t *testing.T, consumer *kafkago.Reader) product {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from products topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return product{Key: string(msg.Key), Data: string(msg.Value), Headers: headers}
}

func productConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func startPipeline(ctx context.Context, t *testing.T, cfg *config.Config, fdsnURL string) (context.CancelFunc, <-chan error) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	client := fdsn.NewClient(fdsnURL, "Geological Survey of Canada (GSC)", 10*time.Second, metrics, discardLogger())
	svc := convert.NewService(client, fdsn.NewCachedStations(client, 16, metrics), format.Options{}, metrics, discardLogger())

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(svc, discardLogger()), writer, discardLogger(), metrics, 50)

	pipelineCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()
	return cancel, errCh
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor)
// and kafka.Writer (Loader) round-trip a request and a product through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	msg := requestMessage(t, "req-1", convert.Request{Station: "OTT", Date: "2019-01-02"})
	publishRequests(ctx, t, broker, msg)

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.Message
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for request")
		}
	}
	require.Len(t, batch, 1)
	assert.Equal(t, []byte("req-1"), batch[0].Key)
	assert.Equal(t, msg.Value, batch[0].Value)
	assert.Equal(t, testSourceTopic, batch[0].Topic)
	require.NotNil(t, batch[0].Commit, "commit callback should be set")
	require.NoError(t, batch[0].Commit(ctx))

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.Product{{
		RequestID: "req-1",
		Filename:  "JAN0219.OTT",
		Format:    "imfv122",
		Network:   "C2",
		Station:   "OTT",
		Date:      testDay,
		Data:      []byte("OTT JAN0219 002 00 XYZF R OTT"),
	}}))

	p := readProduct(ctx, t, productConsumer(t, broker))
	assert.Equal(t, "C2.OTT.imfv122.2019-01-02", p.Key)
	assert.Equal(t, "OTT JAN0219 002 00 XYZF R OTT", p.Data)
	assert.Equal(t, "JAN0219.OTT", p.Headers[kafka.HeaderFilename])
	assert.Equal(t, "req-1", p.Headers[kafka.HeaderRequestID])
	assert.Equal(t, "2019-01-02", p.Headers[kafka.HeaderDate])
}

// TestPipelineEndToEnd wires Reader, conversion service over a fake FDSN
// server, and Writer, and checks each requested format arrives.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")
	fdsnSrv := fakeFDSN(t)

	publishRequests(ctx, t, broker,
		requestMessage(t, "iaga", convert.Request{Station: "OTT", Date: "2019-01-02", Format: format.IAGA2002}),
		requestMessage(t, "imf", convert.Request{Station: "OTT", Date: "2019-01-02", Format: format.IMFV122}),
		requestMessage(t, "internet", convert.Request{Station: "OTT", Date: "2019-01-02", Format: format.Internet}),
	)

	stop, errCh := startPipeline(ctx, t, cfg, fdsnSrv.URL)
	consumer := productConsumer(t, broker)

	received := map[string]product{}
	for len(received) < 3 {
		p := readProduct(ctx, t, consumer)
		received[p.Headers[kafka.HeaderFilename]] = p
	}
	stop()
	require.NoError(t, <-errCh)

	iaga := received["ott20190102vmin.min"]
	require.NotEmpty(t, iaga.Data)
	assert.Equal(t, "iaga", iaga.Headers[kafka.HeaderRequestID])
	assert.Contains(t, iaga.Data, "Ottawa")
	assert.Contains(t, iaga.Data, "Geological Survey of Canada (GSC)")
	assert.Contains(t, iaga.Data, "2019-01-02 00:00:00.000 002     10000.00  20000.00  30000.00  40000.00")
	assert.Contains(t, iaga.Data, "2019-01-02 23:59:00.000 002     11439.00  21439.00  31439.00  41439.00")

	imf := received["JAN0219.OTT"]
	require.NotEmpty(t, imf.Data)
	assert.True(t, strings.HasPrefix(imf.Data, "OTT JAN0219 002 00 XYZF R OTT "), imf.Data[:40])

	internet := received["ott20190102.txt"]
	require.NotEmpty(t, internet.Data)
	assert.Equal(t, 1440, strings.Count(internet.Data, "\n"))
}

// TestPipelineSkipsBadRequests verifies that undecodable and empty requests
// are skipped and the pipeline keeps processing valid ones.
func TestPipelineSkipsBadRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")
	fdsnSrv := fakeFDSN(t)

	publishRequests(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		requestMessage(t, "missing", convert.Request{Station: "MEA", Date: "2019-01-02"}),
		requestMessage(t, "good", convert.Request{Station: "OTT", Date: "2019-01-02", Format: format.IMFV122}),
	)

	stop, errCh := startPipeline(ctx, t, cfg, fdsnSrv.URL)
	consumer := productConsumer(t, broker)

	p := readProduct(ctx, t, consumer)
	assert.Equal(t, "good", p.Headers[kafka.HeaderRequestID])

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second product")

	stop()
	require.NoError(t, <-errCh)
}
