package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"atomiclifo/api/grpcserver"
	"atomiclifo/domain/lifo"
	"atomiclifo/infra/config"
	"atomiclifo/infra/journal"
	"atomiclifo/infra/kafka"
	"atomiclifo/infra/metrics"
	"atomiclifo/infra/sequence"
	"atomiclifo/jobs/broadcaster"
	"atomiclifo/jobs/drainer"
	"atomiclifo/jobs/reclaimer"
	"atomiclifo/service"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log := logrus.NewEntry(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	logger.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		stop()
		log.WithError(err).Fatal("server exited")
	}
}

// run serves until ctx is done, then checkpoints whatever is left on the
// stack. Every resource it opens is closed before it returns.
func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	// ---------------- Journal ----------------

	var jr *journal.Journal
	if cfg.JournalDir != "" {
		var err error
		jr, err = journal.Open(cfg.JournalDir)
		if err != nil {
			return errors.Wrap(err, "journal init")
		}
		defer jr.Close()
	}

	// ---------------- Stack ----------------

	var opts []lifo.Option
	if cfg.RetireThreshold > 0 {
		opts = append(opts, lifo.WithRetireThreshold(cfg.RetireThreshold))
	}
	stack := lifo.New[service.Item](opts...)

	// ---------------- Service ----------------

	svc := service.NewStackService(stack, sequence.New(0), jr, log)

	if n, err := svc.Restore(); err != nil {
		return errors.Wrap(err, "checkpoint restore")
	} else if n > 0 {
		log.WithField("items", n).Info("restored pending items")
	}

	// ---------------- Listeners ----------------

	reg, err := metrics.NewRegistry(stack)
	if err != nil {
		return errors.Wrap(err, "metrics init")
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", cfg.GRPCAddr)
	}

	// ---------------- Background Jobs ----------------

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var jobs errgroup.Group
	runJob := func(fn func()) {
		jobs.Go(func() error {
			fn()
			return nil
		})
	}
	defer func() {
		cancel()
		_ = jobs.Wait()
	}()

	runJob(func() { reclaimer.Run(ctx, stack, cfg.ReclaimInterval, log) })

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := broadcaster.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			_ = lis.Close()
			return errors.Wrap(err, "kafka producer init")
		}
		bc := broadcaster.New(svc, producer, cfg.Kafka.StatsTopic, cfg.Kafka.StatsInterval, log)
		defer bc.Close()
		runJob(func() { bc.Run(ctx) })

		if cfg.Kafka.DrainTopic != "" {
			sink := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DrainTopic)
			defer sink.Close()
			d := drainer.New(svc, sink, cfg.Kafka.DrainWorkers, 100*time.Millisecond, log)
			runJob(func() { d.Run(ctx) })
		}
	}

	// ---------------- Servers ----------------

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server exited")
		}
	}()

	grpcSrv := grpc.NewServer()
	grpcserver.Register(grpcSrv, grpcserver.NewServer(svc, log))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		grpcSrv.GracefulStop()
		_ = metricsSrv.Shutdown(context.Background())
	}()

	log.WithFields(logrus.Fields{
		"grpc":    lis.Addr().String(),
		"metrics": cfg.MetricsAddr,
	}).Info("atomiclifo running")

	serveErr := grpcSrv.Serve(lis)
	if errors.Is(serveErr, grpc.ErrServerStopped) {
		serveErr = nil
	}

	cancel()
	_ = jobs.Wait()

	n, err := svc.Checkpoint()
	if err != nil {
		log.WithError(err).Error("checkpoint failed")
		if serveErr == nil {
			return err
		}
	} else if n > 0 {
		log.WithField("items", n).Info("pending items checkpointed")
	}
	return errors.Wrap(serveErr, "grpc serve")
}
