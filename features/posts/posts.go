// Package posts is the blog posts feature: its type definitions and the service
// functions backing them.
package posts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/platform-mesh/graphql-module-gateway/gateway/schema"
	"github.com/platform-mesh/graphql-module-gateway/gateway/services"
)

const Name = "posts"

//go:embed posts.graphql
var typeDefs string

func Fragment() schema.Fragment {
	return schema.Fragment{Name: Name, TypeDefs: typeDefs}
}

// Source is what the service functions read and write.
type Source interface {
	List() []*Post
	Get(id string) (*Post, error)
	Create(title, body, authorID string) *Post
	Delete(id string) bool
	Subscribe(ctx context.Context) <-chan *Post
}

// Module exposes store through service functions named after the fields they back.
func Module(store Source) services.Module {
	return services.Module{
		Name: Name,
		Root: services.Namespace{
			"posts": func(map[string]any, services.Env) (any, error) {
				return store.List(), nil
			},
			"post": func(args map[string]any, _ services.Env) (any, error) {
				p, err := store.Get(fmt.Sprint(args["id"]))
				if errors.Is(err, ErrNotFound) {
					return nil, nil
				}
				if err != nil {
					return nil, err
				}
				return p, nil
			},
			"createPost": func(args map[string]any, env services.Env) (any, error) {
				input, _ := args["input"].(map[string]interface{})
				title, _ := input["title"].(string)
				body, _ := input["body"].(string)

				var author string
				if user := schema.CurrentUser(env.Context); user != nil {
					author = user.Subject
				}
				return store.Create(title, body, author), nil
			},
			"deletePost": func(args map[string]any, _ services.Env) (any, error) {
				return store.Delete(fmt.Sprint(args["id"])), nil
			},
		},
		Types: map[string]services.Namespace{
			"Post": {
				"author": func(_ map[string]any, env services.Env) (any, error) {
					p, ok := env.Root.(*Post)
					if !ok || p.AuthorID == "" {
						return nil, nil
					}
					return p.AuthorID, nil
				},
			},
			"Subscription": {
				"postCreated": func(_ map[string]any, env services.Env) (any, error) {
					created := store.Subscribe(env.Context)
					out := make(chan interface{})
					go func() {
						defer close(out)
						for p := range created {
							select {
							case out <- p:
							case <-env.Context.Done():
								return
							}
						}
					}()
					return out, nil
				},
			},
		},
	}
}
