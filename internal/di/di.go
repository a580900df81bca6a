// Package di is a small service container with typed tokens.
//
// Services are registered either as ready values or as factories. Factories
// run lazily on first Get and their result is cached for the container's life.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves services by name.
type ServiceRegistry interface {
	Get(name string) any
	Has(name string) bool
}

// Container is a ServiceRegistry that accepts registrations.
type Container interface {
	ServiceRegistry
	Register(name string, value any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type entry struct {
	once    sync.Once
	factory func(ServiceRegistry) any
	value   any
}

type container struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewContainer returns an empty Container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

func (c *container) Register(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &entry{value: value}
	e.once.Do(func() {})
	c.entries[name] = e
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{factory: factory}
}

func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}

// Get panics when name is not registered: a missing service is a wiring bug.
func (c *container) Get(name string) any {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	// the factory may resolve other services, so it runs outside the lock
	e.once.Do(func() {
		e.value = e.factory(c)
	})
	return e.value
}

// Token names a service of type T.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory under tok.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(tok.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves tok.
func GetToken[T any](sr ServiceRegistry, tok Token[T]) T {
	v, ok := sr.Get(tok.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", tok.name))
	}
	return v
}
