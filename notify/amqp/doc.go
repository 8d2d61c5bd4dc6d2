// Package amqp is a notify.Producer backed by an AMQP 1.0 broker. Each event
// address (auth/otp, auth/user_register) maps to one sender link.
package amqp
