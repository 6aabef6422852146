// Package strandamqp implements the strand transport over an AMQP broker.
//
// Operations are published as correlated request messages and answered on
// an exclusive reply queue. A background monitor watches the connection and
// re-establishes it with backoff when it is lost.
package strandamqp

import (
	"context"
	"fmt"
	"os"
	"path"

	version "github.com/hashicorp/go-version"
	"github.com/jmalloc/twelf/src/twelf"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/strand/strand-go/src/internal/service"
	"github.com/strand/strand-go/src/strand"
	"github.com/strand/strand-go/src/strand/resilience"
	"github.com/streadway/amqp"
)

// DefaultPoolSize is the default size to use for channel pools.
const DefaultPoolSize = 20

// Dialer connects to an AMQP broker that fronts the remote data source.
type Dialer struct {
	// PoolSize is the minimum number of AMQP channels to keep open. If
	// PoolSize is zero, DefaultPoolSize is used.
	PoolSize uint

	// AMQPConfig is the configuration for the underlying AMQP connection.
	AMQPConfig amqp.Config

	// Reconnect is the backoff policy used when the connection is lost. If
	// nil, resilience.DefaultReconnect() is used.
	Reconnect *resilience.ReconnectPolicy

	// TimestampURL optionally points snapshot-cursor acquisition at the
	// fixed HTTP endpoint instead of the broker-side timestamp service.
	TimestampURL string

	// Logger is the target for the transport's logs. If nil, a standard
	// logger is used.
	Logger twelf.Logger

	// Tracer propagates operation spans into message headers. If nil, a
	// no-op tracer is used.
	Tracer opentracing.Tracer
}

// Dial connects to the broker at dsn using the default dialer.
func Dial(ctx context.Context, dsn string) (*Transport, error) {
	d := Dialer{}
	return d.Dial(ctx, dsn)
}

// Dial connects to the broker at dsn.
func (d *Dialer) Dial(ctx context.Context, dsn string) (*Transport, error) {
	if dsn == "" {
		dsn = "amqp://localhost"
	}

	amqpCfg := d.AMQPConfig
	if amqpCfg.Properties == nil {
		amqpCfg.Properties = amqp.Table{
			"product": path.Base(os.Args[0]),
			"version": "strand-go/0.1.0",
		}
	}

	logger := d.Logger
	if logger == nil {
		logger = &twelf.StandardLogger{}
	}

	tracer := d.Tracer
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}

	reconnect := d.Reconnect
	if reconnect == nil {
		reconnect = resilience.DefaultReconnect()
	}

	poolSize := d.PoolSize
	if poolSize == 0 {
		poolSize = DefaultPoolSize
	}

	broker, err := amqp.DialConfig(dsn, amqpCfg)
	if err != nil {
		return nil, err
	}

	defer func() {
		// if an error has occurred when the function exits, close the
		// broker connection immediately, otherwise it is owned by the
		// transport
		if err != nil {
			broker.Close()
		}
	}()

	if err = checkCapabilities(broker); err != nil {
		return nil, err
	}

	t := &Transport{
		dsn:          dsn,
		amqpConfig:   amqpCfg,
		poolSize:     poolSize,
		reconnect:    reconnect,
		timestampURL: d.TimestampURL,
		logger:       logger,
		tracer:       tracer,
		pending:      map[string]chan *amqp.Delivery{},
		states:       make(chan strand.ConnectionState, 16),
	}

	if err = t.connect(broker); err != nil {
		return nil, err
	}

	t.sm = service.NewStateMachine(t.monitorRun, t.monitorFinalize)
	go t.sm.Run()

	t.emit(strand.Connected)
	logConnected(logger, dsn)

	return t, nil
}

// checkCapabilities verifies that the broker is a supported product and
// release.
func checkCapabilities(broker *amqp.Connection) error {
	product, _ := broker.Properties["product"].(string)

	ver, _ := broker.Properties["version"].(string)
	semver, err := version.NewVersion(ver)
	if err != nil {
		return err
	}

	var minVersion *version.Version

	switch product {
	case "RabbitMQ":
		// oldest broker release the client is tested against
		minVersion = version.Must(version.NewVersion("3.5.0"))
	default:
		return fmt.Errorf("unsupported AMQP broker: %s", product)
	}

	if semver.LessThan(minVersion) {
		return fmt.Errorf(
			"unsupported AMQP broker: %s %s, minimum version is %s",
			product,
			semver,
			minVersion,
		)
	}

	return nil
}
