// Package kafka carries draw updates between writer and broadcaster
// instances over a Kafka topic.
package kafka
