// Tweetqueue - Tweet Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tweetqueue

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of store query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_sessions_active",
			Help: "Current number of batch-scoped store sessions",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Queue Transport Metrics
	QueueMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_published_total",
			Help: "Total number of messages published",
		},
		[]string{"topic"},
	)

	QueuePublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_publish_errors_total",
			Help: "Total number of failed publishes",
		},
		[]string{"topic"},
	)

	QueueMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_consumed_total",
			Help: "Total number of messages received from the queue",
		},
		[]string{"topic"},
	)

	// Pipeline Metrics
	TweetsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tweets_created_total",
			Help: "Total number of tweets persisted",
		},
	)

	TweetFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_failures_total",
			Help: "Total number of failed tweet creations by error kind",
		},
		[]string{"kind"},
	)

	RetriesEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tweet_retries_enqueued_total",
			Help: "Total number of messages re-enqueued with an incremented retry count",
		},
	)

	MessagesDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_messages_dead_lettered_total",
			Help: "Total number of messages sent to the dead-letter topic",
		},
		[]string{"reason"}, // "exhausted", "undecodable"
	)

	MessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tweet_messages_dropped_total",
			Help: "Total number of exhausted messages dropped with no dead-letter topic configured",
		},
	)

	RetryDispatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tweet_retry_dispatch_failures_total",
			Help: "Total number of retry or dead-letter sends that failed",
		},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tweet_message_processing_duration_seconds",
			Help:    "Duration of single message processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tweet_batch_duration_seconds",
			Help:    "Duration of batch processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tweet_batch_size",
			Help:    "Number of messages in each processed batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	DeadLettersPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dead_letters_persisted_total",
			Help: "Total number of dead-letter records written to the store",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// User Cache Metrics
	UserCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_cache_lookups_total",
			Help: "Total number of username lookups served by the user cache",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Outbox Metrics
	OutboxWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_writes_total",
			Help: "Total number of messages written to the durable outbox",
		},
		[]string{"topic"},
	)

	OutboxDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_deliveries_total",
			Help: "Total number of outbox publish attempts",
		},
		[]string{"result"}, // "confirmed", "failed", "expired", "max_retries"
	)

	OutboxCompacted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_compacted_entries_total",
			Help: "Total number of outbox entries removed by compaction",
		},
		[]string{"state"}, // "confirmed", "expired"
	)

	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Current number of unconfirmed outbox entries",
		},
	)

	// Live Feed Metrics
	FeedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_clients_connected",
			Help: "Current number of connected live feed clients",
		},
	)

	FeedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_total",
			Help: "Total number of pipeline events broadcast to the live feed",
		},
		[]string{"type"},
	)

	// Auth Metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of admin authentication attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Admin audit events by type and disposition",
		},
		[]string{"type", "result"}, // "stored", "dropped", "error"
	)

	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_total",
			Help: "Store backups by trigger and result",
		},
		[]string{"trigger", "result"}, // "success", "failure"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Time to export and archive the store",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	BackupLastSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backup_last_size_bytes",
			Help: "Size of the most recent successful backup archive",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a store query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// TrackSession tracks batch-scoped store sessions
func TrackSession(acquired bool) {
	if acquired {
		DBSessionsActive.Inc()
	} else {
		DBSessionsActive.Dec()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rejected request
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordQueuePublish records a publish attempt on topic
func RecordQueuePublish(topic string, err error) {
	if err != nil {
		QueuePublishErrors.WithLabelValues(topic).Inc()
		return
	}
	QueueMessagesPublished.WithLabelValues(topic).Inc()
}

// RecordQueueConsume records a message received on topic
func RecordQueueConsume(topic string) {
	QueueMessagesConsumed.WithLabelValues(topic).Inc()
}

// RecordTweetCreated records a persisted tweet and the time it took
func RecordTweetCreated(duration time.Duration) {
	TweetsCreated.Inc()
	MessageProcessingDuration.Observe(duration.Seconds())
}

// RecordTweetFailure records a failed tweet creation by error kind label
func RecordTweetFailure(kind string, duration time.Duration) {
	TweetFailures.WithLabelValues(kind).Inc()
	MessageProcessingDuration.Observe(duration.Seconds())
}

// RecordRetryEnqueued records a message re-enqueued for another attempt
func RecordRetryEnqueued() {
	RetriesEnqueued.Inc()
}

// RecordDeadLettered records a message routed to the dead-letter topic
func RecordDeadLettered(reason string) {
	MessagesDeadLettered.WithLabelValues(reason).Inc()
}

// RecordDropped records an exhausted message dropped for lack of a dead-letter topic
func RecordDropped() {
	MessagesDropped.Inc()
}

// RecordRetryDispatchFailure records a failed retry or dead-letter send
func RecordRetryDispatchFailure() {
	RetryDispatchFailures.Inc()
}

// RecordBatch records a processed batch
func RecordBatch(size int, duration time.Duration) {
	BatchSize.Observe(float64(size))
	BatchDuration.Observe(duration.Seconds())
}

// RecordDeadLetterPersisted records a dead-letter record write
func RecordDeadLetterPersisted(err error) {
	if err != nil {
		DeadLettersPersisted.WithLabelValues("failure").Inc()
		return
	}
	DeadLettersPersisted.WithLabelValues("success").Inc()
}

// RecordCircuitBreakerTransition records a breaker state change.
// state follows gobreaker ordering: 0=closed, 1=half-open, 2=open.
func RecordCircuitBreakerTransition(name, from, to string, state int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordUserCacheLookup records a user cache hit or miss
func RecordUserCacheLookup(hit bool) {
	if hit {
		UserCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	UserCacheLookups.WithLabelValues("miss").Inc()
}

// RecordOutboxWrite records a message persisted to the outbox
func RecordOutboxWrite(topic string) {
	OutboxWrites.WithLabelValues(topic).Inc()
}

// RecordOutboxDelivery records the result of an outbox publish attempt
func RecordOutboxDelivery(result string) {
	OutboxDeliveries.WithLabelValues(result).Inc()
}

// SetOutboxPending sets the number of unconfirmed outbox entries
func SetOutboxPending(n int64) {
	OutboxPending.Set(float64(n))
}

// RecordOutboxCompaction records entries removed by one compaction run
func RecordOutboxCompaction(confirmed, expired int64) {
	OutboxCompacted.WithLabelValues("confirmed").Add(float64(confirmed))
	OutboxCompacted.WithLabelValues("expired").Add(float64(expired))
}

// TrackFeedClient tracks live feed connections
func TrackFeedClient(connected bool) {
	if connected {
		FeedClients.Inc()
	} else {
		FeedClients.Dec()
	}
}

// RecordFeedEvent records a broadcast live feed event
func RecordFeedEvent(eventType string) {
	FeedEvents.WithLabelValues(eventType).Inc()
}

// RecordAuthAttempt records an admin login attempt
func RecordAuthAttempt(success bool) {
	if success {
		AuthAttempts.WithLabelValues("success").Inc()
		return
	}
	AuthAttempts.WithLabelValues("failure").Inc()
}

// RecordAuditEvent counts an audit event by what happened to it
func RecordAuditEvent(eventType, result string) {
	AuditEvents.WithLabelValues(eventType, result).Inc()
}

// RecordBackup records one backup attempt
func RecordBackup(trigger string, duration time.Duration, sizeBytes int64, err error) {
	BackupDuration.Observe(duration.Seconds())
	if err != nil {
		BackupsTotal.WithLabelValues(trigger, "failure").Inc()
		return
	}
	BackupsTotal.WithLabelValues(trigger, "success").Inc()
	BackupLastSizeBytes.Set(float64(sizeBytes))
}

// SetAppInfo publishes the build version
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}
