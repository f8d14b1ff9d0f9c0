package infra

// MetricNamespace holds the metrics extracted from function logs.
const MetricNamespace = "ddbsdl"

// reportPattern matches the REPORT line Lambda writes after every invocation
// and names its space separated fields.
const reportPattern = `[report="REPORT", request_id_label, request_id, duration_label, duration, duration_unit, billed_label, billed_duration_label, billed_duration, billed_unit, size_label, size_size_label, memory_size, memory_size_unit, max_label, max_memory_label, max_used_label, max_memory_used, ...]`

func unitAlarms(u Unit, cfg Config, t AlarmThresholds) *Fragment {
	ids := idsOf(u)
	f := commonFragment()
	fn := []any{map[string]any{"Name": "FunctionName", "Value": ref(ids.Function)}}

	coldStarts := logicalID(u.Name, "cold", "starts")
	f.Resources[coldStarts+"Filter"] = logMetric(ids.LogGroup, `"Init Duration"`, coldStarts, "1")
	f.Resources[coldStarts+"Alarm"] = alarm(u, "cold starts", map[string]any{
		"Namespace":          MetricNamespace,
		"MetricName":         coldStarts,
		"Statistic":          "Sum",
		"Threshold":          t.ColdStarts,
		"ComparisonOperator": "GreaterThanOrEqualToThreshold",
	})

	f.Resources[logicalID(u.Name, "duration", "alarm")] = alarm(u, "p99 duration", map[string]any{
		"Namespace":          "AWS/Lambda",
		"MetricName":         "Duration",
		"Dimensions":         fn,
		"ExtendedStatistic":  "p99",
		"Threshold":          t.DurationP99Ms,
		"ComparisonOperator": "GreaterThanThreshold",
	})

	memory := logicalID(u.Name, "max", "memory", "used")
	f.Resources[memory+"Filter"] = logMetric(ids.LogGroup, reportPattern, memory, "$max_memory_used")
	f.Resources[memory+"Alarm"] = alarm(u, "memory", map[string]any{
		"Namespace":          MetricNamespace,
		"MetricName":         memory,
		"Statistic":          "Maximum",
		"Threshold":          cfg.MemoryMB * t.MemoryUtilizationPercent / 100,
		"ComparisonOperator": "GreaterThanOrEqualToThreshold",
	})

	f.Resources[logicalID(u.Name, "dlq", "alarm")] = alarm(u, "dead letter queue depth", map[string]any{
		"Namespace":  "AWS/SQS",
		"MetricName": "ApproximateNumberOfMessagesVisible",
		"Dimensions": []any{map[string]any{
			"Name":  "QueueName",
			"Value": getAtt(ids.DLQ, "QueueName"),
		}},
		"Statistic":          "Maximum",
		"Threshold":          t.DLQDepth,
		"ComparisonOperator": "GreaterThanOrEqualToThreshold",
	})

	if u.Kind == KindDispatcher {
		f.Resources[logicalID(u.Name, "iterator", "age", "alarm")] = alarm(u, "iterator age", map[string]any{
			"Namespace":          "AWS/Lambda",
			"MetricName":         "IteratorAge",
			"Dimensions":         fn,
			"Statistic":          "Maximum",
			"Threshold":          t.IteratorAgeMs,
			"ComparisonOperator": "GreaterThanThreshold",
		})
	}
	return f
}

func logMetric(logGroup, pattern, metric, value string) Resource {
	return Resource{
		Type: "AWS::Logs::MetricFilter",
		Properties: map[string]any{
			"LogGroupName":  ref(logGroup),
			"FilterPattern": pattern,
			"MetricTransformations": []any{map[string]any{
				"MetricNamespace": MetricNamespace,
				"MetricName":      metric,
				"MetricValue":     value,
			}},
		},
	}
}

// alarm fills the properties every alarm shares around metric.
func alarm(u Unit, what string, metric map[string]any) Resource {
	props := map[string]any{
		"AlarmDescription":  u.Name + ": " + what,
		"Period":            300,
		"EvaluationPeriods": 1,
		"TreatMissingData":  "notBreaching",
		"AlarmActions":      ifCondition(condHasAlarmTopic, []any{ref(ParamAlarmTopicArn)}, noValue),
	}
	for k, v := range metric {
		props[k] = v
	}
	return Resource{Type: "AWS::CloudWatch::Alarm", Properties: props}
}
