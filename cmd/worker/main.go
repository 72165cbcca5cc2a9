package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/amrlink/internal/pipeline"
	"github.com/OFFIS-RIT/amrlink/internal/queue"
	"github.com/OFFIS-RIT/amrlink/internal/storage"
	"github.com/OFFIS-RIT/amrlink/internal/timing"
	"github.com/OFFIS-RIT/amrlink/internal/util"
	"github.com/OFFIS-RIT/amrlink/pkg/common"
	"github.com/OFFIS-RIT/amrlink/pkg/leaselock"
	"github.com/OFFIS-RIT/amrlink/pkg/logger"
	"github.com/OFFIS-RIT/amrlink/pkg/logger/console"
	graphstorage "github.com/OFFIS-RIT/amrlink/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	})
	logger.Init(consoleLogger)

	// pipeline
	graphClient, err := pipeline.NewGraphClient(pipeline.ConfigFromEnv(), nil)
	if err != nil {
		logger.Fatal("Could not create graph client", "err", err)
	}

	// s3
	s3Client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Could not create s3 client", "err", err)
	}
	objects, err := storage.NewStoreFromEnv(ctx, s3Client)
	if err != nil {
		logger.Fatal("Could not create object store", "err", err)
	}

	// postgres
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	exportFormat, err := common.ParseFormat(util.GetEnvString("GRAPH_EXPORT_FORMAT", "ttl"))
	if err != nil {
		logger.Fatal("Invalid GRAPH_EXPORT_FORMAT", "err", err)
	}
	hostname, _ := os.Hostname()
	worker, err := queue.NewWorker(queue.NewWorkerParams{
		Processor:    graphClient,
		Storage:      graphstorage.NewGraphDBStorageWithConnection(
			pgConn,
			graphstorage.WithStatementChunk(int(util.GetEnvNumeric("STATEMENT_CHUNK", 5000))),
		),
		Objects:      objects,
		Locks:        leaselock.New(pgConn),
		ExportFormat: exportFormat,
		LeaseTTL:     util.GetEnvDuration("LEASE_TTL", 5*time.Minute),
		WorkerID:     util.GetEnvString("WORKER_ID", hostname),
	})
	if err != nil {
		logger.Fatal("Could not create worker", "err", err)
	}

	// rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	// one message at a time across all queues
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}
	messages := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		msgs, err := consumerCh.Consume(
			queueName,
			fmt.Sprintf("%s_consumer", queueName),
			false, // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,
		)
		if err != nil {
			logger.Fatal("Failed to start consuming", "queue", queueName, "err", err)
		}

		go func(qName string, msgs <-chan amqp.Delivery) {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					select {
					case messages <- queuedMessage{msg: msg, queueName: qName}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(queueName, msgs)
	}

	logger.Info("Listening for messages", "queues", queue.Queues)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case qm := <-messages:
			start := time.Now()
			logger.Info("Received message", "queue", qm.queueName)

			if err := worker.Handle(ctx, qm.queueName, qm.msg.Body); err != nil {
				logger.Error("Error processing message", "queue", qm.queueName, "err", err)
				queue.HandleFailure(consumerCh, qm.msg, qm.queueName)
			} else if err := qm.msg.Ack(false); err != nil {
				logger.Error("Failed to ack message", "err", err)
			}

			logger.Info("Processing time", "queue", qm.queueName, "duration", timing.Since(start))
		}
	}
}
