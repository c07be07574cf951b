package ddns

import (
	"context"
	"fmt"
	"sync"

	"github.com/rsclarke/ddnsd/internal/provider"
)

type fakeRecord struct {
	name  string
	rtype string
	value string
}

// fakeClient is a scripted provider keeping records in memory.
type fakeClient struct {
	mu      sync.Mutex
	records map[string]*fakeRecord
	nextID  int

	unauthorized bool
	refuseUpdate bool
	refuseCreate bool
	fault        error

	finds   int
	updates int
	creates int
}

func newFakeClient() *fakeClient {
	return &fakeClient{records: make(map[string]*fakeRecord)}
}

func (f *fakeClient) add(name, rtype, value string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("rec-%d", f.nextID)
	f.records[id] = &fakeRecord{name: name, rtype: rtype, value: value}
	return id
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finds + f.updates + f.creates
}

func (f *fakeClient) value(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		return r.value
	}
	return ""
}

func (f *fakeClient) FindRecord(_ context.Context, name, recordType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if err := f.failure(); err != nil {
		return "", err
	}
	for id, r := range f.records {
		if r.name == name && r.rtype == recordType {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeClient) UpdateRecord(_ context.Context, id, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if err := f.failure(); err != nil {
		return false, err
	}
	r, ok := f.records[id]
	if !ok || f.refuseUpdate {
		return false, nil
	}
	r.value = value
	return true, nil
}

func (f *fakeClient) CreateRecord(_ context.Context, name, recordType, value string) (string, error) {
	f.mu.Lock()
	f.creates++
	if err := f.failure(); err != nil {
		f.mu.Unlock()
		return "", err
	}
	if f.refuseCreate {
		f.mu.Unlock()
		return "", nil
	}
	f.mu.Unlock()
	return f.add(name, recordType, value), nil
}

func (f *fakeClient) failure() error {
	if f.unauthorized {
		return provider.ErrUnauthorized
	}
	return f.fault
}
