package auditsvc

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLog_RecordLogin(t *testing.T) {
	var buf bytes.Buffer
	ll := NewLoginLog(&buf)

	ll.RecordLogin("jdoe", "10.0.0.1", true)
	ll.RecordLogin("j doe", "10.0.0.2", false)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "event=login")
	assert.Contains(t, lines[0], "username=jdoe ip=10.0.0.1 result=success")
	assert.Contains(t, lines[1], `username="j doe" ip=10.0.0.2 result=failure`)
}

func TestLoginLog_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	ll := NewLoginLog(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ll.RecordLogin("jdoe", "127.0.0.1", true)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 50)
	for _, l := range lines {
		assert.True(t, strings.HasSuffix(l, "result=success"), l)
	}
}

func TestOpenLoginLog(t *testing.T) {
	path := t.TempDir() + "/logins.log"
	ll, err := OpenLoginLog(path)
	require.NoError(t, err)
	ll.RecordLogin("admin", "::1", true)
	require.NoError(t, ll.Close())

	ll, err = OpenLoginLog(path)
	require.NoError(t, err)
	ll.RecordLogin("admin", "::1", false)
	require.NoError(t, ll.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "result=success")
	assert.Contains(t, lines[1], "result=failure")

	stdout, err := OpenLoginLog("")
	require.NoError(t, err)
	assert.NoError(t, stdout.Close())
}
