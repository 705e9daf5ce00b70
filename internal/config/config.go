package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvReader interface {
	Getenv(key string) string
}

// OSEnv reads from the actual operating system environment
type OSEnv struct{}

func (OSEnv) Getenv(key string) string {
	return os.Getenv(key)
}

type Config struct {
	RedisAddr string

	EgressProxies []string
	LockName      string
	LeaseNS       string
	LeaseDuration time.Duration
	PoolNoLock    bool

	AWSRegion    string
	SQSEndpoint  string
	QueueURL     string
	AWSAccessKey string
	AWSSecretKey string

	Concurrency int
	MaxInFlight int

	PublishChannel   string
	ThrottleInterval time.Duration
}

func Load(env EnvReader) (Config, error) {
	redisAddr := env.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return Config{}, errors.New("REDIS_ADDR is required")
	}

	queueURL := env.Getenv("SQS_QUEUE_URL")
	if queueURL == "" {
		return Config{}, errors.New("SQS_QUEUE_URL is required")
	}

	proxies := splitList(env.Getenv("EGRESS_PROXIES"))
	if len(proxies) == 0 {
		return Config{}, errors.New("EGRESS_PROXIES is required")
	}

	lockName := env.Getenv("LOCK_NAME")
	if lockName == "" {
		return Config{}, errors.New("LOCK_NAME is required")
	}

	leaseSec, err := getenvInt(env, "LEASE_SECONDS", 15)
	if err != nil {
		return Config{}, err
	}
	if leaseSec <= 0 {
		return Config{}, errors.New("LEASE_SECONDS must be > 0")
	}

	noLock, err := getenvBool(env, "POOL_NO_LOCK", false)
	if err != nil {
		return Config{}, err
	}
	if noLock && len(proxies) != 1 {
		return Config{}, errors.New("POOL_NO_LOCK requires exactly one entry in EGRESS_PROXIES")
	}

	concurrency, err := getenvInt(env, "WORKER_CONCURRENCY", 4)
	if err != nil {
		return Config{}, err
	}
	if concurrency <= 0 {
		return Config{}, errors.New("WORKER_CONCURRENCY must be > 0")
	}

	maxInFlight, err := getenvInt(env, "MAX_IN_FLIGHT", 8)
	if err != nil {
		return Config{}, err
	}
	if maxInFlight < concurrency {
		return Config{}, errors.New("MAX_IN_FLIGHT must be >= WORKER_CONCURRENCY")
	}

	throttleSec, err := getenvInt(env, "THROTTLE_SECONDS", 1)
	if err != nil {
		return Config{}, err
	}

	region := getenv(env, "AWS_REGION", "us-east-1")
	endpoint := env.Getenv("SQS_ENDPOINT")
	accessKey := getenv(env, "AWS_ACCESS_KEY_ID", "dummy")
	secretKey := getenv(env, "AWS_SECRET_ACCESS_KEY", "dummy")

	return Config{
		RedisAddr:        redisAddr,
		EgressProxies:    proxies,
		LockName:         lockName,
		LeaseNS:          getenv(env, "LEASE_NAMESPACE", "socks-pool"),
		LeaseDuration:    time.Duration(leaseSec) * time.Second,
		PoolNoLock:       noLock,
		AWSRegion:        region,
		SQSEndpoint:      endpoint,
		QueueURL:         queueURL,
		AWSAccessKey:     accessKey,
		AWSSecretKey:     secretKey,
		Concurrency:      concurrency,
		MaxInFlight:      maxInFlight,
		PublishChannel:   getenv(env, "PUBLISH_CHANNEL", "market.events"),
		ThrottleInterval: time.Duration(throttleSec) * time.Second,
	}, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenv(env EnvReader, key, def string) string {
	v := env.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(env EnvReader, key string, def int) (int, error) {
	v := getenv(env, key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func getenvBool(env EnvReader, key string, def bool) (bool, error) {
	v := getenv(env, key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
