// SPDX-License-Identifier: GPL-3.0-or-later

package doipmux

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doipkit/doipkit/pkg/scenariomsg"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSession scripts RecvScenario responses and records SendScenario
// calls, standing in for [*doipsession.Session] in these tests.
type fakeSession struct {
	mu          sync.Mutex
	recvResults []incomingResult
	recvIdx     int
	sent        []scenariomsg.Message
	reconnects  int
	failReconnect bool
}

func (f *fakeSession) RecvScenario() (scenariomsg.Message, error) {
	f.mu.Lock()
	if f.recvIdx >= len(f.recvResults) {
		f.mu.Unlock()
		<-make(chan struct{}) // block forever once the script is exhausted
	}
	r := f.recvResults[f.recvIdx]
	f.recvIdx++
	f.mu.Unlock()
	return r.msg, r.err
}

func (f *fakeSession) SendScenario(ctx context.Context, targetLA uint16, msg scenariomsg.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSession) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if f.failReconnect {
		f.failReconnect = false
		return errors.New("simulated reconnect failure")
	}
	return nil
}

func TestMuxForwardsIncomingToResponseQueue(t *testing.T) {
	fs := &fakeSession{recvResults: []incomingResult{{msg: scenariomsg.AliveCheckReq{}}}}
	m := &Mux{session: fs, targetLA: 0x00ed, logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reqCh := make(chan scenariomsg.Message, 1)
	rspCh := make(chan scenariomsg.Message, 3)

	go m.Run(ctx, reqCh, rspCh)

	select {
	case msg := <-rspCh:
		require.Equal(t, scenariomsg.AliveCheckReq{}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded message")
	}
}

func TestMuxSendsOutboundRequests(t *testing.T) {
	fs := &fakeSession{}
	m := &Mux{session: fs, targetLA: 0x00ed, logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reqCh := make(chan scenariomsg.Message, 1)
	rspCh := make(chan scenariomsg.Message, 3)

	go m.Run(ctx, reqCh, rspCh)

	reqCh <- scenariomsg.AliveCheckRsp{}
	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.sent) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMuxReconnectsOnRecvError(t *testing.T) {
	fs := &fakeSession{
		recvResults: []incomingResult{
			{err: errors.New("simulated I/O error")},
			{msg: scenariomsg.NotifyDoIpCnxRoutingAck{}},
		},
	}
	m := &Mux{session: fs, targetLA: 0x00ed, logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reqCh := make(chan scenariomsg.Message, 1)
	rspCh := make(chan scenariomsg.Message, 3)

	go m.Run(ctx, reqCh, rspCh)

	select {
	case msg := <-rspCh:
		require.Equal(t, scenariomsg.NotifyDoIpCnxRoutingAck{}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for post-reconnect message")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Equal(t, 1, fs.reconnects)
}
