package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	// Ethereum side of the claim flow. The operator key signs mint
	// transactions on the T2C manager contract.
	ChainRPCURL        string `env:"CHAIN_RPC_URL"`
	ChainID            int64  `env:"CHAIN_ID" envDefault:"11155111"`
	ContractAddress    string `env:"T2C_CONTRACT_ADDRESS"`
	OperatorPrivateKey string `env:"OPERATOR_PRIVATE_KEY"`
	ConfirmationBlocks uint64 `env:"CONFIRMATION_BLOCKS" envDefault:"2"`

	ClaimConfirmTimeout time.Duration `env:"CLAIM_CONFIRM_TIMEOUT" envDefault:"3m"`
	ClaimLockTTL        time.Duration `env:"CLAIM_LOCK_TTL" envDefault:"5m"`

	ReconcileInterval   time.Duration `env:"RECONCILE_INTERVAL" envDefault:"2m"`
	ReconcileGrace      time.Duration `env:"RECONCILE_GRACE" envDefault:"5m"`
	ReconcileAbandonAge time.Duration `env:"RECONCILE_ABANDON_AGE" envDefault:"24h"`

	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	OpenRouterModel  string `env:"OPENROUTER_MODEL" envDefault:"meta-llama/llama-4-scout:free"`

	AvatarBucket string `env:"AVATAR_BUCKET"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
