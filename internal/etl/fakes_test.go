package etl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BartekS5/steampulse/pkg/models"
)

// fakeSearch serves scripted search pages. Errors queued for a page are returned
// before its tokens.
type fakeSearch struct {
	mu     sync.Mutex
	pages  map[int][]string
	errs   map[int][]error
	always error
	calls  []int
}

func (f *fakeSearch) SearchPage(ctx context.Context, page int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, page)
	if f.always != nil {
		return nil, f.always
	}
	if q := f.errs[page]; len(q) > 0 {
		f.errs[page] = q[1:]
		return nil, q[0]
	}
	return f.pages[page], nil
}

func tokens(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprint(i))
	}
	return out
}

// fakeDetails returns a game payload for every id unless a script says otherwise.
// hook runs before each response.
type fakeDetails struct {
	mu      sync.Mutex
	kinds   map[models.AppID]string
	scripts map[models.AppID][]models.DetailResult
	hook    func(id models.AppID)
	calls   []models.AppID
}

func (f *fakeDetails) AppDetails(ctx context.Context, id models.AppID) models.DetailResult {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	hook := f.hook
	var scripted *models.DetailResult
	if q := f.scripts[id]; len(q) > 0 {
		f.scripts[id] = q[1:]
		scripted = &q[0]
	}
	kind := models.GameKind
	if k, ok := f.kinds[id]; ok {
		kind = k
	}
	f.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	if scripted != nil {
		return *scripted
	}
	return models.Success(map[string]interface{}{
		"type":        kind,
		"name":        fmt.Sprintf("app %d", id),
		"steam_appid": int(id),
	})
}

func (f *fakeDetails) countCalls(id models.AppID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == id {
			n++
		}
	}
	return n
}

type memIDStore struct {
	ids     []models.AppID
	saves   int
	saveErr error
}

func (s *memIDStore) Load(ctx context.Context) ([]models.AppID, error) {
	return s.ids, nil
}

func (s *memIDStore) Save(ctx context.Context, ids []models.AppID) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.ids = append([]models.AppID(nil), ids...)
	return nil
}

type memCheckpoints struct {
	value   int
	history []int
	saveErr error
}

func (c *memCheckpoints) Load(ctx context.Context) (int, error) {
	return c.value, nil
}

func (c *memCheckpoints) Save(ctx context.Context, next int) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	if next < c.value {
		return ErrCheckpointRegression
	}
	c.value = next
	c.history = append(c.history, next)
	return nil
}

func (c *memCheckpoints) Reset(ctx context.Context) error {
	c.value = 0
	return nil
}

type sinkWrite struct {
	label   string
	records []models.Record
}

// memSink records batches in write order and can serve raw files for repair.
type memSink struct {
	writes   []sinkWrite
	files    map[string][]byte
	writeErr error
}

func (s *memSink) Write(ctx context.Context, label string, records []models.Record) (string, error) {
	if s.writeErr != nil {
		return "", s.writeErr
	}
	s.writes = append(s.writes, sinkWrite{label: label, records: records})
	return "mem://" + BatchFileName(label), nil
}

func (s *memSink) List(ctx context.Context) ([]string, error) {
	var names []string
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memSink) Read(ctx context.Context, name string) ([]byte, error) {
	data, ok := s.files[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

type recordingPublisher struct {
	name   string
	writes []sinkWrite
	err    error
}

func (p *recordingPublisher) Name() string {
	if p.name == "" {
		return "recording"
	}
	return p.name
}

func (p *recordingPublisher) Publish(ctx context.Context, label string, records []models.Record) error {
	p.writes = append(p.writes, sinkWrite{label: label, records: records})
	return p.err
}

type storedObject struct {
	body        []byte
	contentType string
}

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
	failKey map[string]error
	puts    int
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string]storedObject{}, failKey: map[string]error{}}
}

func (s *memObjectStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if err := s.failKey[key]; err != nil {
		return err
	}
	s.objects[key] = storedObject{body: append([]byte(nil), body...), contentType: contentType}
	return nil
}

// hangingObjectStore accepts the upload and never answers until ctx ends.
type hangingObjectStore struct {
	mu        sync.Mutex
	deadlines []bool
}

func (s *hangingObjectStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, ok := ctx.Deadline()
	s.mu.Lock()
	s.deadlines = append(s.deadlines, ok)
	s.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

// sleepRecorder replaces real sleeps and remembers every requested duration.
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slept {
		if s == d {
			n++
		}
	}
	return n
}

func appIDs(ids ...int) []models.AppID {
	out := make([]models.AppID, len(ids))
	for i, id := range ids {
		out[i] = models.AppID(id)
	}
	return out
}

func steamIDs(records []models.Record) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r[models.FieldSteamID].(int))
	}
	return out
}
