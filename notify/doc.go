// Package notify defines the outbound events of the identity core and the
// Producer they are published through. notify/amqp is the broker-backed
// Producer; [Recorder] is the in-memory one.
package notify
