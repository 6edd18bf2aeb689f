package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	sessionbridge "github.com/opengovern/session-bridge"
)

func TestReportAndNavigationShareOneWriter(t *testing.T) {
	var buf bytes.Buffer
	out := &lockedWriter{w: &buf}
	rt := &runtime{out: out, nav: newPrintNavigator(out)}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rt.nav.Navigate("login.html?reason=401")
		}()
		go func() {
			defer wg.Done()
			rt.report(sessionbridge.Outcome{Level: sessionbridge.NoticeInfo, Message: "hello"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, strings.Count(buf.String(), "-> login.html?reason=401\n"))
	assert.Equal(t, 50, strings.Count(buf.String(), "[info] hello\n"))
}
