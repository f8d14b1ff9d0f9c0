package infra

import (
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/schema"
)

// Parameters shared by every unit fragment.
const (
	ParamArtifactBucket = "ArtifactBucket"
	ParamArtifactPrefix = "ArtifactPrefix"
	ParamAlarmTopicArn  = "AlarmTopicArn"
	ParamLogLevel       = "LogLevel"

	condHasAlarmTopic = "HasAlarmTopic"
)

// EnvLogLevel is read by the generated mains.
const EnvLogLevel = "LOG_LEVEL"

const dlqRetentionSeconds = 14 * 24 * 60 * 60

func commonFragment() *Fragment {
	f := NewFragment()
	f.Parameters[ParamArtifactBucket] = Parameter{
		Type:        "String",
		Description: "Bucket holding the function code artifacts",
	}
	f.Parameters[ParamArtifactPrefix] = Parameter{
		Type:        "String",
		Description: "Key prefix of the function code artifacts",
		Default:     "",
	}
	f.Parameters[ParamAlarmTopicArn] = Parameter{
		Type:        "String",
		Description: "SNS topic notified by the alarms, empty to disable notifications",
		Default:     "",
	}
	f.Parameters[ParamLogLevel] = Parameter{
		Type:    "String",
		Default: "info",
	}
	f.Conditions[condHasAlarmTopic] = map[string]any{
		"Fn::Not": []any{map[string]any{"Fn::Equals": []any{ref(ParamAlarmTopicArn), ""}}},
	}
	return f
}

// unitIDs are the logical IDs of one unit's resources.
type unitIDs struct {
	Function, Role, LogGroup, DLQ string
}

func idsOf(u Unit) unitIDs {
	return unitIDs{
		Function: logicalID(u.Name, "function"),
		Role:     logicalID(u.Name, "role"),
		LogGroup: logicalID(u.Name, "log", "group"),
		DLQ:      logicalID(u.Name, "dlq"),
	}
}

func functionName(u Unit) map[string]any {
	return sub("${AWS::StackName}-" + u.Name)
}

// function is the fragment shared by every unit kind: role, function, log
// group and dead letter queue.
func function(u Unit, tables []schema.Table, cfg Config, statements []any) *Fragment {
	ids := idsOf(u)
	f := commonFragment()

	env := map[string]any{EnvLogLevel: ref(ParamLogLevel)}
	for _, t := range tables {
		env[schema.TableEnvVar(t.Name)] = ref(TableID(t.Name))
	}

	statements = append(statements, statement([]string{"sqs:SendMessage"}, getAtt(ids.DLQ, "Arn")))
	f.Resources[ids.Role] = Resource{
		Type: "AWS::IAM::Role",
		Properties: map[string]any{
			"AssumeRolePolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []any{map[string]any{
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": "lambda.amazonaws.com"},
					"Action":    "sts:AssumeRole",
				}},
			},
			"ManagedPolicyArns": []any{
				sub("arn:${AWS::Partition}:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"),
			},
			"Policies": []any{map[string]any{
				"PolicyName": u.Name,
				"PolicyDocument": map[string]any{
					"Version":   "2012-10-17",
					"Statement": statements,
				},
			}},
		},
	}

	f.Resources[ids.LogGroup] = Resource{
		Type: "AWS::Logs::LogGroup",
		Properties: map[string]any{
			"LogGroupName":    sub("/aws/lambda/${AWS::StackName}-" + u.Name),
			"RetentionInDays": cfg.LogRetentionDays,
		},
	}

	f.Resources[ids.DLQ] = Resource{
		Type: "AWS::SQS::Queue",
		Properties: map[string]any{
			"MessageRetentionPeriod": dlqRetentionSeconds,
		},
	}

	props := map[string]any{
		"FunctionName":  functionName(u),
		"Runtime":       cfg.Runtime,
		"Handler":       "bootstrap",
		"Architectures": []string{cfg.Architecture},
		"MemorySize":    cfg.MemoryMB,
		"Timeout":       cfg.TimeoutSeconds,
		"Role":          getAtt(ids.Role, "Arn"),
		"Code": map[string]any{
			"S3Bucket": ref(ParamArtifactBucket),
			"S3Key":    sub("${" + ParamArtifactPrefix + "}" + u.Name + ".zip"),
		},
		"Environment": map[string]any{"Variables": env},
	}
	// Stream invocations report failures through the mapping's on-failure
	// destination, asynchronous ones through the function's queue.
	if u.Kind != KindDispatcher {
		props["DeadLetterConfig"] = map[string]any{"TargetArn": getAtt(ids.DLQ, "Arn")}
	}
	f.Resources[ids.Function] = Resource{
		Type:       "AWS::Lambda::Function",
		DependsOn:  []string{ids.LogGroup},
		Properties: props,
	}
	f.Outputs[logicalID(u.Name, "function", "arn")] = Output{Value: getAtt(ids.Function, "Arn")}
	return f
}

func statement(actions []string, resources ...any) map[string]any {
	return map[string]any{
		"Effect":   "Allow",
		"Action":   actions,
		"Resource": resources,
	}
}

func tableResources(table string) []any {
	arn := getAtt(TableID(table), "Arn")
	return []any{arn, map[string]any{"Fn::Join": []any{"", []any{arn, "/index/*"}}}}
}

func eventBusArn(cfg Config) map[string]any {
	bus := cfg.EventBusName
	if bus == "" {
		bus = "default"
	}
	return sub("arn:${AWS::Partition}:events:${AWS::Region}:${AWS::AccountId}:event-bus/" + bus)
}

// Dispatcher is the fragment of a dispatcher: its function reads the table
// stream and publishes to the event bus.
func Dispatcher(u Unit, tables []schema.Table, cfg Config, alarms AlarmThresholds) (*Fragment, error) {
	if u.Kind != KindDispatcher {
		return nil, fmt.Errorf("unit %s is a %s, not a dispatcher", u.Name, u.Kind)
	}
	ids := idsOf(u)
	stream := getAtt(TableID(u.Table), "StreamArn")
	f := function(u, tables, cfg, []any{
		statement([]string{
			"dynamodb:DescribeStream",
			"dynamodb:GetRecords",
			"dynamodb:GetShardIterator",
			"dynamodb:ListStreams",
		}, stream),
		statement([]string{"events:PutEvents"}, eventBusArn(cfg)),
	})
	f.Resources[logicalID(u.Name, "stream", "mapping")] = Resource{
		Type: "AWS::Lambda::EventSourceMapping",
		Properties: map[string]any{
			"EventSourceArn":             stream,
			"FunctionName":               ref(ids.Function),
			"StartingPosition":           "TRIM_HORIZON",
			"BatchSize":                  cfg.BatchSize,
			"MaximumRetryAttempts":       cfg.MaximumRetryAttempts,
			"BisectBatchOnFunctionError": true,
			"FunctionResponseTypes":      []string{"ReportBatchItemFailures"},
			"DestinationConfig": map[string]any{
				"OnFailure": map[string]any{"Destination": getAtt(ids.DLQ, "Arn")},
			},
		},
	}
	if err := f.Merge(unitAlarms(u, cfg, alarms)); err != nil {
		return nil, err
	}
	return f, nil
}

// Handler is the fragment of a trigger or enricher: its function is the
// target of a rule matching the source model's change events.
func Handler(u Unit, tables []schema.Table, cfg Config, alarms AlarmThresholds) (*Fragment, error) {
	var statements []any
	switch u.Kind {
	case KindTrigger:
		for _, t := range tables {
			statements = append(statements, statement([]string{
				"dynamodb:GetItem",
				"dynamodb:PutItem",
				"dynamodb:UpdateItem",
				"dynamodb:DeleteItem",
				"dynamodb:Query",
			}, tableResources(t.Name)...))
		}
	case KindEnricher:
		statements = append(statements, statement([]string{
			"dynamodb:GetItem",
			"dynamodb:PutItem",
			"dynamodb:UpdateItem",
		}, tableResources(u.TargetTable)...))
	default:
		return nil, fmt.Errorf("unit %s is a %s, not a trigger or enricher", u.Name, u.Kind)
	}

	ids := idsOf(u)
	rule := logicalID(u.Name, "rule")
	f := function(u, tables, cfg, statements)

	ruleProps := map[string]any{
		"State": "ENABLED",
		"EventPattern": map[string]any{
			"source":      []string{EventSource(cfg.EventSourcePrefix, u.Table)},
			"detail-type": u.DetailTypes,
		},
		"Targets": []any{map[string]any{
			"Id":  "Function",
			"Arn": getAtt(ids.Function, "Arn"),
			"RetryPolicy": map[string]any{
				"MaximumRetryAttempts":     cfg.MaximumRetryAttempts,
				"MaximumEventAgeInSeconds": cfg.MaximumEventAgeSeconds,
			},
			"DeadLetterConfig": map[string]any{"Arn": getAtt(ids.DLQ, "Arn")},
		}},
	}
	if cfg.EventBusName != "" {
		ruleProps["EventBusName"] = cfg.EventBusName
	}
	f.Resources[rule] = Resource{Type: "AWS::Events::Rule", Properties: ruleProps}

	f.Resources[logicalID(u.Name, "invoke", "permission")] = Resource{
		Type: "AWS::Lambda::Permission",
		Properties: map[string]any{
			"Action":       "lambda:InvokeFunction",
			"FunctionName": ref(ids.Function),
			"Principal":    "events.amazonaws.com",
			"SourceArn":    getAtt(rule, "Arn"),
		},
	}

	f.Resources[logicalID(u.Name, "dlq", "policy")] = Resource{
		Type: "AWS::SQS::QueuePolicy",
		Properties: map[string]any{
			"Queues": []any{ref(ids.DLQ)},
			"PolicyDocument": map[string]any{
				"Version": "2012-10-17",
				"Statement": []any{map[string]any{
					"Effect":    "Allow",
					"Principal": map[string]any{"Service": "events.amazonaws.com"},
					"Action":    "sqs:SendMessage",
					"Resource":  getAtt(ids.DLQ, "Arn"),
					"Condition": map[string]any{
						"ArnEquals": map[string]any{"aws:SourceArn": getAtt(rule, "Arn")},
					},
				}},
			},
		},
	}

	if err := f.Merge(unitAlarms(u, cfg, alarms)); err != nil {
		return nil, err
	}
	return f, nil
}
