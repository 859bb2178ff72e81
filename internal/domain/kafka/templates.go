package kafka

import "github.com/ehr/fhirportal/internal/platform/document"

// DeadLetterTopic receives events that exhausted their retries.
const DeadLetterTopic = "dlq.failed-events.v1"

func baseEvent() document.Document {
	return document.Document{
		"eventId":      "event-uuid-sample",
		"eventType":    "patient.registered.v1",
		"eventVersion": "1.0",
		"timestamp":    "2023-09-01T12:30:45Z",
		"source": document.Document{
			"service":  "patient-service",
			"version":  "2.1.0",
			"instance": "patient-service-pod-3",
		},
		"subject": document.Document{
			"type":     "Patient",
			"id":       "patient-uuid-123",
			"tenantId": "tenant-clinic-001",
		},
		"data": document.Document{
			"action":        "created",
			"userId":        "user-uuid-456",
			"previousState": nil,
			"currentState": document.Document{
				"status":               "active",
				"registrationComplete": true,
			},
		},
		"metadata": document.Document{
			"correlationId": "corr-uuid-789",
			"causationId":   "cause-uuid-101",
			"sessionId":     "session-uuid-202",
			"traceId":       "trace-uuid-303",
			"priority":      "normal",
			"retryCount":    0,
		},
		"compliance": document.Document{
			"dataClassification": "PHI",
			"retentionPeriod":    "P7Y",
			"encryptionRequired": true,
			"auditRequired":      true,
		},
	}
}

func topics() document.Document {
	return document.Document{
		"patient.lifecycle.v1": document.Document{
			"partitions":        12,
			"replicationFactor": 3,
			"retentionMs":       int64(604800000),
			"partitionKey":      "patientId",
			"compressionType":   "lz4",
			"cleanupPolicy":     "delete",
			"messageTypes": document.Strings(
				"patient.registered.v1",
				"patient.updated.v1",
				"patient.merged.v1",
				"patient.anonymized.v1",
				"patient.consent.changed.v1",
			),
		},
		"patient.search.v1": document.Document{
			"partitions":        6,
			"replicationFactor": 3,
			"retentionMs":       int64(86400000),
			"partitionKey":      "searchHash",
			"compressionType":   "snappy",
			"cleanupPolicy":     "delete",
		},
		"observation.clinical.v1": document.Document{
			"partitions":        24,
			"replicationFactor": 3,
			"retentionMs":       int64(2592000000),
			"partitionKey":      "patientId",
			"compressionType":   "lz4",
			"messageTypes": document.Strings(
				"observation.created.v1",
				"observation.updated.v1",
				"observation.alert.triggered.v1",
				"observation.batch.processed.v1",
			),
		},
		"appointment.scheduling.v1": document.Document{
			"partitions":        8,
			"replicationFactor": 3,
			"retentionMs":       int64(1209600000),
			"partitionKey":      "practitionerId",
			"compressionType":   "lz4",
		},
		"security.events.v1": document.Document{
			"partitions":        16,
			"replicationFactor": 3,
			"retentionMs":       int64(31536000000),
			"partitionKey":      "userId",
			"compressionType":   "gzip",
			"cleanupPolicy":     "compact",
		},
		"audit.trail.v1": document.Document{
			"partitions":        32,
			"replicationFactor": 3,
			"retentionMs":       int64(220752000000),
			"partitionKey":      "resourceId",
			"compressionType":   "gzip",
			"cleanupPolicy":     "compact",
		},
		DeadLetterTopic: document.Document{
			"partitions":        4,
			"replicationFactor": 3,
			"retentionMs":       int64(604800000),
			"compressionType":   "gzip",
			"retryPolicy": document.Document{
				"maxRetries":      3,
				"backoffStrategy": "exponential",
				"initialDelay":    "PT1S",
				"maxDelay":        "PT30S",
				"jitterEnabled":   true,
			},
			"alerting": document.Document{
				"enabled":    true,
				"threshold":  100,
				"timeWindow": "PT1H",
				"channels":   document.Strings("slack", "email"),
			},
		},
	}
}

func partitioning() document.Document {
	return document.Document{
		"patient.lifecycle.v1": document.Document{
			"partitionKey":      "data.patientId",
			"keyExtractor":      "$.subject.id",
			"orderingGuarantee": "per_patient",
		},
		"observation.clinical.v1": document.Document{
			"partitionKey":      "data.patientId",
			"keyExtractor":      "$.data.subject.reference",
			"orderingGuarantee": "per_patient_per_observation_type",
		},
		"appointment.scheduling.v1": document.Document{
			"partitionKey":      "data.practitionerId",
			"orderingGuarantee": "per_practitioner",
		},
		"audit.trail.v1": document.Document{
			"partitionKey":      "data.resourceId",
			"orderingGuarantee": "per_resource",
		},
	}
}

func consumerGroups() document.Document {
	return document.Document{
		"realtime": []interface{}{
			document.Document{
				"groupId":          "patient-service-realtime",
				"topics":           document.Strings("hl7.message.received.v1", "user.registered.v1", "consent.updated.v1"),
				"processingMode":   "exactly_once",
				"maxPollRecords":   100,
				"sessionTimeoutMs": 30000,
				"autoCommit":       false,
			},
			document.Document{
				"groupId":        "notification-service-immediate",
				"topics":         document.Strings("appointment.booked.v1", "observation.alert.triggered.v1", "security.alert.triggered.v1"),
				"processingMode": "at_least_once",
				"maxPollRecords": 50,
				"priorityQueues": document.Document{
					"critical": document.Strings("security.alert.triggered.v1"),
					"high":     document.Strings("observation.alert.triggered.v1"),
					"normal":   document.Strings("appointment.booked.v1"),
				},
			},
		},
		"batch": []interface{}{
			document.Document{
				"groupId":        "analytics-service-batch",
				"topics":         document.Strings("patient.lifecycle.v1", "observation.clinical.v1", "appointment.scheduling.v1"),
				"processingMode": "batch",
				"batchSize":      1000,
				"batchTimeoutMs": 60000,
				"windowDuration": "PT5M",
			},
		},
		"audit": []interface{}{
			document.Document{
				"groupId":             "audit-service-compliance",
				"topics":              document.Strings("*.*.v1"),
				"processingMode":      "exactly_once",
				"durabilityGuarantee": "persistent",
				"retentionPolicy":     "P7Y",
				"encryptionEnabled":   true,
			},
		},
	}
}

func monitoring() document.Document {
	return document.Document{
		"monitoring": document.Document{
			"metricsReporter": "io.confluent.monitoring.clients.interceptor.MonitoringProducerInterceptor",
			"jmxMetrics": document.Strings(
				"kafka.producer:type=producer-metrics,client-id=*",
				"kafka.consumer:type=consumer-metrics,client-id=*",
				"kafka.streams:type=stream-metrics,client-id=*",
			),
			"alertRules": []interface{}{
				document.Document{"metric": "consumer_lag", "threshold": 10000, "duration": "PT5M", "severity": "warning"},
				document.Document{"metric": "error_rate", "threshold": 0.05, "duration": "PT2M", "severity": "critical"},
			},
		},
		"healthChecks": document.Document{
			"producerLatency":   document.Document{"threshold": "PT0.1S", "alertChannel": "ops-team"},
			"consumerLag":       document.Document{"threshold": 5000, "alertChannel": "dev-team"},
			"diskUsage":         document.Document{"threshold": 0.8, "alertChannel": "infrastructure"},
			"replicationStatus": document.Document{"minInSyncReplicas": 2, "alertChannel": "ops-team"},
		},
	}
}

func schemaRegistry() document.Document {
	return document.Document{
		"schemaRegistry": document.Document{
			"url":                "http://schema-registry:8081",
			"compatibilityLevel": "BACKWARD",
			"subjectNaming":      "TopicNameStrategy",
			"schemas": document.Document{
				"patient.lifecycle.v1-value": document.Document{
					"version":   2,
					"evolution": "backward_compatible",
					"changes": document.Strings(
						"added optional field 'preferredLanguage'",
						"added optional field 'communicationPreferences'",
					),
				},
			},
		},
	}
}

func security() document.Document {
	return document.Document{
		"security": document.Document{
			"protocol":              "SASL_SSL",
			"saslMechanism":         "SCRAM-SHA-512",
			"sslTruststoreLocation": "/opt/kafka/ssl/truststore.jks",
			"sslKeystoreLocation":   "/opt/kafka/ssl/keystore.jks",
			"encryption":            document.Document{"inTransit": "TLS 1.3", "atRest": "AES-256-GCM"},
			"acls": []interface{}{
				document.Document{
					"principal":  "User:patient-service",
					"operations": document.Strings("Read", "Write"),
					"topics":     document.Strings("patient.lifecycle.v1"),
				},
				document.Document{
					"principal":  "User:audit-service",
					"operations": document.Strings("Read"),
					"topics":     document.Strings("*.*.v1"),
				},
			},
		},
	}
}

func retryPolicy() document.Document {
	return document.Document{
		"retryPolicy": document.Document{
			"retryableExceptions": document.Strings(
				"org.apache.kafka.common.errors.TimeoutException",
				"org.springframework.dao.TransientDataAccessException",
				"java.net.SocketTimeoutException",
			),
			"nonRetryableExceptions": document.Strings(
				"com.fhir.validation.ValidationException",
				"org.springframework.security.access.AccessDeniedException",
				"com.fhir.patient.PatientNotFoundException",
			),
			"maxRetries": 3,
			"backoffPolicy": document.Document{
				"type":                "exponential",
				"initialInterval":     1000,
				"multiplier":          2.0,
				"maxInterval":         30000,
				"randomizationFactor": 0.1,
			},
		},
	}
}
