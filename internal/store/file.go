package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/comanda-pos/api/internal/enum"
	"github.com/comanda-pos/api/internal/service"
)

// TimeLayout is the local timestamp format used in the ledger file.
const TimeLayout = "02/01/2006 15:04:05"

// FileStore keeps the whole ledger in one JSON document, rewritten on
// every Put. A missing file is an empty ledger.
type FileStore struct {
	path string
	loc  *time.Location

	mu     sync.Mutex
	orders map[int64]service.Order
}

// NewFileStore creates a FileStore at path. Timestamps are read and
// written in local time.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		loc:    time.Local,
		orders: make(map[int64]service.Order),
	}
}

// Path returns the ledger file path.
func (s *FileStore) Path() string { return s.path }

// fileOrder is one entry of the ledger document.
type fileOrder struct {
	Mesa        int       `json:"mesa"`
	Itens       fileItems `json:"itens"`
	Status      string    `json:"status"`
	DataHora    string    `json:"data_hora"`
	HoraEntrega *string   `json:"hora_entrega,omitempty"`
}

// fileItems is an item-code → quantity object whose key order is the
// order of the lines.
type fileItems []service.OrderLine

func (it fileItems) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range it {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:%d", strconv.Itoa(l.ItemCode), l.Quantity)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (it *fileItems) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("itens: expected object")
	}
	var lines []service.OrderLine
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		code, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("itens: item code %q: %w", key, err)
		}
		var qty int
		if err := dec.Decode(&qty); err != nil {
			return fmt.Errorf("itens: item %d: %w", code, err)
		}
		lines = append(lines, service.OrderLine{ItemCode: code, Quantity: qty})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*it = lines
	return nil
}

// Load implements service.Store.
func (s *FileStore) Load(_ context.Context) ([]service.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []service.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []service.Order{}, nil
	}

	var doc map[string]fileOrder
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	orders := make([]service.Order, 0, len(doc))
	for key, fo := range doc {
		o, err := s.decodeOrder(key, fo)
		if err != nil {
			return nil, fmt.Errorf("decode %s: order %s: %w", s.path, key, err)
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })

	s.orders = make(map[int64]service.Order, len(orders))
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return orders, nil
}

func (s *FileStore) decodeOrder(key string, fo fileOrder) (service.Order, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return service.Order{}, fmt.Errorf("order id: %w", err)
	}
	status, err := enum.ParseOrderStatus(fo.Status)
	if err != nil {
		return service.Order{}, err
	}
	created, err := time.ParseInLocation(TimeLayout, fo.DataHora, s.loc)
	if err != nil {
		return service.Order{}, fmt.Errorf("data_hora: %w", err)
	}
	o := service.Order{
		ID:          id,
		TableNumber: fo.Mesa,
		Lines:       []service.OrderLine(fo.Itens),
		Status:      status,
		CreatedAt:   created,
	}
	if fo.HoraEntrega != nil {
		at, err := time.ParseInLocation(TimeLayout, *fo.HoraEntrega, s.loc)
		if err != nil {
			return service.Order{}, fmt.Errorf("hora_entrega: %w", err)
		}
		o.DeliveredAt = &at
	}
	return o, nil
}

func (s *FileStore) encodeOrder(o service.Order) fileOrder {
	fo := fileOrder{
		Mesa:     o.TableNumber,
		Itens:    fileItems(o.Lines),
		Status:   o.Status.Label(),
		DataHora: o.CreatedAt.In(s.loc).Format(TimeLayout),
	}
	if o.DeliveredAt != nil {
		at := o.DeliveredAt.In(s.loc).Format(TimeLayout)
		fo.HoraEntrega = &at
	}
	return fo
}

// Put implements service.Store. The document is written to a temporary
// file in the same directory and renamed over the ledger. A failed write
// keeps o cached, so the next successful Put writes it too.
func (s *FileStore) Put(_ context.Context, o service.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID] = o
	return s.writeLocked()
}

func (s *FileStore) writeLocked() error {
	ids := make([]int64, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, id := range ids {
		body, err := json.MarshalIndent(s.encodeOrder(s.orders[id]), "  ", "  ")
		if err != nil {
			return fmt.Errorf("encode order %d: %w", id, err)
		}
		fmt.Fprintf(&buf, "  %q: %s", strconv.FormatInt(id, 10), body)
		if i < len(ids)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
