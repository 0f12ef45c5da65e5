package email

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_InvalidAddressFailsPermanently(t *testing.T) {
	mailer := NewSMTPMailer(Config{SMTPHost: "localhost", SMTPPort: 2525})

	err := mailer.Send(&Message{To: "not-an-address", Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestSend_TimesOutOnSilentRelay(t *testing.T) {
	// A relay that accepts the connection but never speaks SMTP
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	mailer := NewSMTPMailer(Config{
		SMTPHost:    host,
		SMTPPort:    port,
		FromEmail:   "billing@example.com",
		SendTimeout: 100 * time.Millisecond,
	})

	start := time.Now()
	err = mailer.Send(&Message{To: "asha@example.com", Subject: "x", Body: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.False(t, IsPermanent(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestIsPermanent(t *testing.T) {
	assert.False(t, IsPermanent(nil))
	assert.False(t, IsPermanent(assert.AnError))
}
