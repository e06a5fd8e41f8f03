package membership

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/immuvault/internal/routing"
	"github.com/dreamware/immuvault/internal/transport"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// Monitor polls known peers' /health endpoints and, after
// maxFailures consecutive failures, synthesizes a routing.MemberLeft
// event into events — an internal readiness source feeding the same
// channel real routing events arrive on.
type Monitor struct {
	peers       *transport.Peers
	table       *Table
	self        xorspace.Name
	httpClient  *http.Client
	events      chan<- routing.Event
	fails       map[xorspace.Name]int
	mu          sync.Mutex
	interval    time.Duration
	maxFailures int
}

// NewMonitor returns a Monitor that checks every interval and
// reports a member gone after 3 consecutive failures. A departed peer
// is dropped from both the address book and the membership table
// before the MemberLeft event fires, so holder selection never offers
// the gone peer again.
func NewMonitor(peers *transport.Peers, table *Table, self xorspace.Name, events chan<- routing.Event, interval time.Duration) *Monitor {
	return &Monitor{
		peers:       peers,
		table:       table,
		self:        self,
		httpClient:  &http.Client{Timeout: 2 * time.Second},
		events:      events,
		fails:       make(map[xorspace.Name]int),
		interval:    interval,
		maxFailures: 3,
	}
}

// Run blocks, checking all known peers every interval, until ctx is
// canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.checkAll()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) checkAll() {
	for name, addr := range m.peers.All() {
		if name == m.self {
			continue
		}
		m.check(name, addr)
	}
}

func (m *Monitor) check(name xorspace.Name, addr string) {
	err := m.ping(addr)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.fails, name)
		return
	}
	m.fails[name]++
	logrus.WithFields(logrus.Fields{"peer": name.String(), "failures": m.fails[name]}).
		Warn("membership: health check failed")
	if m.fails[name] >= m.maxFailures {
		delete(m.fails, name)
		m.peers.Remove(name)
		m.table.Remove(name)
		m.events <- routing.Event{Kind: routing.MemberLeft, Member: name}
	}
}

func (m *Monitor) ping(addr string) error {
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimRight(url, "/") + "/health"

	resp, err := m.httpClient.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errStatus(resp.StatusCode)
	}
	return nil
}

type errStatus int

func (e errStatus) Error() string { return "unhealthy status" }
