package config // package config loads application configuration from environment variables

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Required variables are enforced by must()
// and missing values cause the process to exit at startup rather than
// fail on the first request.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	Region         string // AWS region for the record store, stacks and bucket
	ModelTable     string // model table name
	UserTable      string // user table name
	DatasetTable   string // dataset table name
	ArtifactBucket string // S3 bucket for trained artifacts

	StoreDriver    string // "dynamo" (default) or "mysql"
	DynamoEndpoint string // optional DynamoDB endpoint override for local stacks

	// MySQL settings, read only when StoreDriver is "mysql".
	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	// Node deployment shape. Cluster, VPC and subnets identify the
	// shared infrastructure every node deployment joins.
	NodeCluster     string
	NodeVPCID       string
	NodeSubnetIDs   []string
	NodeExecRoleARN string
	NodeImage       string // empty uses the standard node image
	MasterNodeURL   string // public URL of this service, passed to nodes

	EntitlementCheck bool // gate provisioning on dataset purchase
	CallTimeout      time.Duration

	BrokerURL             string // RabbitMQ URL; empty resolves from env defaults
	EventsEnabled         bool   // publish lifecycle events
	ProgressConsumer      bool   // consume model.progress from the broker
	ProvisionCacheEnabled bool   // cache ready deployment outputs in Redis
}

// Load reads configuration values from environment variables and returns
// a Config. Only the selected store driver's settings are required: a
// mysql deployment does not need DynamoDB settings filled in and vice
// versa.
func Load() Config {
	cfg := Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "5001"),

		Region:         envStr("AWS_REGION", "us-east-1"),
		ModelTable:     envStr("MODEL_TABLE", "model_table"),
		UserTable:      envStr("USER_TABLE", "user_table"),
		DatasetTable:   envStr("DATASET_TABLE", "dataset_table"),
		ArtifactBucket: envStr("ARTIFACT_BUCKET", ""),

		StoreDriver:    strings.ToLower(envStr("STORE_DRIVER", "dynamo")),
		DynamoEndpoint: envStr("DYNAMO_ENDPOINT", ""),

		NodeCluster:     envStr("NODE_CLUSTER", ""),
		NodeVPCID:       envStr("NODE_VPC_ID", ""),
		NodeSubnetIDs:   splitList(envStr("NODE_SUBNET_IDS", "")),
		NodeExecRoleARN: envStr("NODE_EXECUTION_ROLE_ARN", ""),
		NodeImage:       envStr("NODE_IMAGE", ""),
		MasterNodeURL:   envStr("MASTER_NODE_URL", ""),

		EntitlementCheck: envBool("ENTITLEMENT_CHECK", true),
		CallTimeout:      envDur("CALL_TIMEOUT", 15*time.Second),

		BrokerURL:             envStr("RABBITMQ_URL", ""),
		EventsEnabled:         envBool("EVENTS_ENABLED", true),
		ProgressConsumer:      envBool("PROGRESS_CONSUMER", false),
		ProvisionCacheEnabled: envBool("PROVISION_CACHE_ENABLED", true),
	}

	switch cfg.StoreDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = envStr("DB_PASS", "")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "dynamo":
	default:
		logrus.Fatalf("unknown STORE_DRIVER: %q", cfg.StoreDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v := envStr(key, "")
	if v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
