package stream

import "fmt"

// Redis key pattern helpers
//
// Key pattern: relay:{instance_name}:stream:{topic}
// Dead-letter pattern: relay:{instance_name}:stream:{topic}:dead

// TopicKey returns the Redis key for a topic's stream.
// Pattern: relay:{instance_name}:stream:{topic}
func TopicKey(instanceName, topic string) string {
	return fmt.Sprintf("relay:%s:stream:%s", instanceName, topic)
}

// DeadLetterKey returns the Redis key for a topic's dead-letter stream.
// Pattern: relay:{instance_name}:stream:{topic}:dead
func DeadLetterKey(instanceName, topic string) string {
	return fmt.Sprintf("relay:%s:stream:%s:dead", instanceName, topic)
}

// RateLimitKey returns the Redis key for a token bucket.
// Pattern: relay:{instance_name}:ratelimit:{bucket_key}
func RateLimitKey(instanceName, bucketKey string) string {
	return fmt.Sprintf("relay:%s:ratelimit:%s", instanceName, bucketKey)
}
