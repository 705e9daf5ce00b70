// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"egress-pool-worker/internal/broker"
	"egress-pool-worker/internal/config"
	"egress-pool-worker/internal/pool"
	"egress-pool-worker/internal/queue"
	"egress-pool-worker/internal/throttler"
)

const (
	acquireRetryInterval = 3 * time.Second
	queueWaitSeconds     = 15
)

func main() {
	cfg, err := config.Load(config.OSEnv{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerID := cfg.LockName + "/" + uuid.NewString()[:8]
	log.Printf("worker starting id=%s lock=%s proxies=%d queue=%s",
		workerID, cfg.LockName, len(cfg.EgressProxies), cfg.QueueURL)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	egress, err := pool.New(pool.NewRedisStore(rdb), pool.Config{
		Resources:     cfg.EgressProxies,
		LockName:      cfg.LockName,
		Namespace:     cfg.LeaseNS,
		LeaseDuration: cfg.LeaseDuration,
		NoLock:        cfg.PoolNoLock,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool error: %v\n", err)
		os.Exit(1)
	}

	events := broker.New(rdb)
	cooldown := throttler.New(cfg.ThrottleInterval)
	jobs := queue.New(newSQSClient(ctx, cfg), cfg.QueueURL, queueWaitSeconds)

	for {
		leaseCtx, cancel := context.WithCancel(ctx)

		proxy, ok := egress.Acquire(leaseCtx)
		if !ok {
			cancel()
			select {
			case <-ctx.Done():
				return
			case <-time.After(acquireRetryInterval):
			}
			continue
		}
		log.Printf("worker lease_acquired id=%s proxy=%s", workerID, proxy)

		handler := newJobHandler(events, cooldown, cfg.PublishChannel, proxy)
		runner := queue.NewRunner(jobs, handler, cfg.MaxInFlight, cfg.Concurrency)

		runDone := make(chan error, 1)
		go func() { runDone <- runner.Run(leaseCtx) }()

		select {
		case <-ctx.Done():
			cancel()
			<-runDone
			log.Printf("worker stopped id=%s", workerID)
			return
		case <-egress.Done():
			// The renewal task lost its lease; stop consuming through this
			// proxy and go compete for another one.
			log.Printf("worker lease_lost id=%s proxy=%s", workerID, proxy)
			cancel()
			<-runDone
		}
	}
}

// newJobHandler dispatches a market-update job through the leased egress
// proxy. The market fetch itself lives in the connector services; this worker
// throttles the request and announces the dispatch on the event channel.
func newJobHandler(events *broker.Broker, cooldown *throttler.Throttler, channel, proxy string) queue.Handler {
	return func(ctx context.Context, job *queue.Job) error {
		var req struct {
			Market string `json:"market"`
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal([]byte(job.Body), &req); err != nil {
			return fmt.Errorf("decode job %s: %w", job.ID, err)
		}

		if wait := cooldown.Until(req.Market, req.Symbol); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		cooldown.MayPass(req.Market, req.Symbol)

		_, err := events.Publish(ctx, channel, map[string]any{
			"job_id": job.ID,
			"market": req.Market,
			"symbol": req.Symbol,
			"egress": proxy,
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
		return err
	}
}

func newSQSClient(ctx context.Context, cfg config.Config) queue.SQSClient {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.SQSEndpoint != "" {
		opts = append(opts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
			),
		)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		panic(err)
	}

	clientOpts := []func(*sqs.Options){}
	if cfg.SQSEndpoint != "" {
		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.SQSEndpoint)
		})
	}

	return sqs.NewFromConfig(awsCfg, clientOpts...)
}
