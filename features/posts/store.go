package posts

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"
)

var ErrNotFound = errors.New("post not found")

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	AuthorID  string    `json:"-"`
}

// Store keeps posts in memory and fans created posts out to subscribers.
type Store struct {
	mu     sync.RWMutex
	posts  map[string]*Post
	nextID int
	now    func() time.Time

	subMu       sync.Mutex
	subscribers map[int]chan *Post
	nextSub     int
}

func NewStore(seed ...Post) *Store {
	s := &Store{
		posts:       map[string]*Post{},
		now:         time.Now,
		subscribers: map[int]chan *Post{},
	}
	for _, p := range seed {
		if p.ID == "" {
			s.nextID++
			p.ID = strconv.Itoa(s.nextID)
		}
		s.posts[p.ID] = &p
	}
	return s
}

// List returns posts newest first.
func (s *Store) List() []*Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Post, 0, len(s.posts))
	for _, p := range s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) Get(id string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Store) Create(title, body, authorID string) *Post {
	s.mu.Lock()
	s.nextID++
	p := &Post{
		ID:        strconv.Itoa(s.nextID),
		Title:     title,
		Body:      body,
		CreatedAt: s.now().UTC(),
		AuthorID:  authorID,
	}
	for s.posts[p.ID] != nil {
		s.nextID++
		p.ID = strconv.Itoa(s.nextID)
	}
	s.posts[p.ID] = p
	s.mu.Unlock()

	s.publish(p)
	return p
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return false
	}
	delete(s.posts, id)
	return true
}

// Subscribe delivers every post created after the call until ctx is done.
func (s *Store) Subscribe(ctx context.Context) <-chan *Post {
	ch := make(chan *Post, 8)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subscribers, id)
		close(ch)
		s.subMu.Unlock()
	}()

	return ch
}

// publish drops the post for subscribers whose buffer is full.
func (s *Store) publish(p *Post) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- p:
		default:
		}
	}
}
