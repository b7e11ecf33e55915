package leaderboard

import (
	"fmt"
	"net/url"
	"rankview/internal/models"
	"rankview/internal/providers"
	"strconv"
	"strings"
	"sync"
)

const (
	QueryPeriod = "period"
	QueryPage   = "page"
)

// Address is the externally observable location of a board. Replace must not
// create a new history entry.
type Address interface {
	Query() string
	Replace(query string) error
}

// ParseQuery reads period and page from a raw query string. It is total:
// anything malformed falls back to all_time and page 1.
func ParseQuery(raw string) (models.Period, int) {
	values, _ := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	return models.NormalizePeriod(values.Get(QueryPeriod)), ParsePage(values.Get(QueryPage))
}

// ParsePage falls back to page 1 for anything that is not a page number in
// [1, models.MaxPage].
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > models.MaxPage {
		return 1
	}
	return n
}

// EncodeQuery sets period and page on top of the current query, keeping any
// unrelated parameters. Keys are sorted so equal states encode equally.
func EncodeQuery(current string, state models.PageState) string {
	values, _ := url.ParseQuery(strings.TrimPrefix(current, "?"))
	if values == nil {
		values = url.Values{}
	}
	values.Set(QueryPeriod, string(state.Period))
	values.Set(QueryPage, strconv.Itoa(state.Page))
	return values.Encode()
}

// Navigator mirrors a session's PageState to an Address and adopts
// out-of-band address changes back into the session. The session stays
// authoritative: outbound writes are compare-before-write and inbound
// observations of the navigator's own last write are ignored.
type Navigator struct {
	mu          sync.Mutex
	address     Address
	kind        models.Kind
	logger      providers.Logger
	session     *Session
	lastWritten string
	writes      int
}

func NewNavigator(address Address, kind models.Kind, logger providers.Logger) *Navigator {
	return &Navigator{
		address: address,
		kind:    models.NormalizeKind(string(kind)),
		logger:  logger,
	}
}

// Bind attaches the session and subscribes Outbound to its changes.
func (n *Navigator) Bind(session *Session) {
	n.mu.Lock()
	n.session = session
	n.mu.Unlock()

	session.OnChange(func(v View) {
		if _, err := n.Outbound(v.State); err != nil {
			n.logger.Warnf(providers.TypeApp, "Address sync failed: %s", err)
		}
	})
}

// Load adopts whatever the address currently holds; used on initial load.
func (n *Navigator) Load() bool {
	n.mu.Lock()
	session := n.session
	query := n.address.Query()
	n.lastWritten = ""
	n.mu.Unlock()

	if session == nil {
		return false
	}
	return n.adopt(session, query)
}

// Outbound writes the address for state unless it already matches.
func (n *Navigator) Outbound(state models.PageState) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	current := strings.TrimPrefix(n.address.Query(), "?")
	target := EncodeQuery(current, state)
	if target == canonicalQuery(current) {
		return false, nil
	}
	if err := n.address.Replace(target); err != nil {
		return false, fmt.Errorf("replace address %q: %w", target, err)
	}
	n.lastWritten = target
	n.writes++
	return true, nil
}

// Inbound handles an address change observed from outside, e.g. a pasted
// link. It reports whether the session was asked to adopt a new state.
func (n *Navigator) Inbound(query string) bool {
	query = strings.TrimPrefix(query, "?")

	n.mu.Lock()
	session := n.session
	if query == n.lastWritten {
		n.mu.Unlock()
		return false
	}
	n.lastWritten = ""
	n.mu.Unlock()

	if session == nil {
		return false
	}
	return n.adopt(session, query)
}

// Writes counts address replacements performed.
func (n *Navigator) Writes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.writes
}

// canonicalQuery re-encodes raw with sorted keys so that parameter order alone
// never counts as a difference.
func canonicalQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return raw
	}
	return values.Encode()
}

func (n *Navigator) adopt(session *Session, query string) bool {
	period, page := ParseQuery(query)
	return session.Adopt(models.PageState{Kind: n.kind, Period: period, Page: page})
}

// MemoryAddress is an in-process Address, used by non-browser clients.
type MemoryAddress struct {
	mu    sync.Mutex
	query string
}

func NewMemoryAddress(query string) *MemoryAddress {
	return &MemoryAddress{query: strings.TrimPrefix(query, "?")}
}

func (m *MemoryAddress) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

func (m *MemoryAddress) Replace(query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.query = query
	return nil
}
