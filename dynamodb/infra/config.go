package infra

// Config holds the generation-time parameters of the deployed units.
type Config struct {
	// Template is the path the CloudFormation template is written to,
	// relative to the output directory.
	Template         string `mapstructure:"template" validate:"required"`
	LogRetentionDays int    `mapstructure:"logRetentionDays" validate:"oneof=1 3 5 7 14 30 60 90 120 150 180 365 400 545 731 1096 1827 2192 2557 2922 3288 3653"`
	// BatchSize is the number of stream records a dispatcher receives per
	// invocation.
	BatchSize int `mapstructure:"batchSize" validate:"min=1,max=10000"`
	// MaximumRetryAttempts bounds the retries of a failed stream batch and of
	// an undeliverable EventBridge event.
	MaximumRetryAttempts   int    `mapstructure:"maximumRetryAttempts" validate:"min=0,max=185"`
	MaximumEventAgeSeconds int    `mapstructure:"maximumEventAgeSeconds" validate:"min=60,max=86400"`
	TimeoutSeconds         int    `mapstructure:"timeoutSeconds" validate:"min=1,max=900"`
	MemoryMB               int    `mapstructure:"memoryMB" validate:"min=128,max=10240"`
	EventSourcePrefix      string `mapstructure:"eventSourcePrefix" validate:"required,hostname"`
	// EventBusName is empty for the account's default bus.
	EventBusName string `mapstructure:"eventBusName"`
	Runtime      string `mapstructure:"runtime" validate:"required"`
	Architecture string `mapstructure:"architecture" validate:"oneof=arm64 x86_64"`
}

// DefaultConfig is the configuration of a project that sets nothing.
func DefaultConfig() Config {
	return Config{
		Template:               "infra/template.yaml",
		LogRetentionDays:       30,
		BatchSize:              100,
		MaximumRetryAttempts:   5,
		MaximumEventAgeSeconds: 3600,
		TimeoutSeconds:         30,
		MemoryMB:               256,
		EventSourcePrefix:      "ddbsdl",
		Runtime:                "provided.al2023",
		Architecture:           "arm64",
	}
}

// AlarmThresholds are the limits a unit's alarms fire at.
type AlarmThresholds struct {
	// ColdStarts per five minutes.
	ColdStarts    int `mapstructure:"coldStarts" validate:"min=1"`
	DurationP99Ms int `mapstructure:"durationP99Ms" validate:"min=1"`
	// IteratorAgeMs applies to dispatchers only.
	IteratorAgeMs            int `mapstructure:"iteratorAgeMs" validate:"min=1"`
	MemoryUtilizationPercent int `mapstructure:"memoryUtilizationPercent" validate:"min=1,max=100"`
	DLQDepth                 int `mapstructure:"dlqDepth" validate:"min=1"`
}

func DefaultDispatcherAlarms() AlarmThresholds {
	return AlarmThresholds{
		ColdStarts:               20,
		DurationP99Ms:            5000,
		IteratorAgeMs:            60000,
		MemoryUtilizationPercent: 90,
		DLQDepth:                 1,
	}
}

func DefaultHandlerAlarms() AlarmThresholds {
	return AlarmThresholds{
		ColdStarts:               50,
		DurationP99Ms:            10000,
		IteratorAgeMs:            60000,
		MemoryUtilizationPercent: 90,
		DLQDepth:                 1,
	}
}
