package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apidec/apidec"
)

// Request/Response types
type TodoQuery struct {
	Limit    int  `default:"20"`
	ShowDone bool `default:"false"`
}

type Todo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type TodoIn struct {
	Title string `json:"title" validate:"required"`
}

var todos = []Todo{
	{ID: 1, Title: "write docs", Done: false},
	{ID: 2, Title: "ship release", Done: true},
}

func listTodos(req *apidec.Request[TodoQuery, apidec.NoBody]) ([]Todo, error) {
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if !req.Query.ShowDone && t.Done {
			continue
		}
		out = append(out, t)
		if len(out) >= req.Query.Limit {
			break
		}
	}
	return out, nil
}

func getTodo(req *apidec.Request[apidec.NoQuery, apidec.NoBody]) (Todo, error) {
	id := req.Params.Int("id")
	for _, t := range todos {
		if t.ID == id {
			return t, nil
		}
	}
	return Todo{}, apidec.ErrNotFound
}

func createTodo(req *apidec.Request[apidec.NoQuery, TodoIn]) (Todo, error) {
	t := Todo{ID: len(todos) + 1, Title: req.Body.Title}
	todos = append(todos, t)
	return t, nil
}

func main() {
	cfg := apidec.DefaultConfig().
		WithPort(8081).
		WithAuthCheck(func(*http.Request) bool { return true })

	engine := apidec.NewEngine(cfg)

	list := apidec.NewHandler("list-todos", "GET", listTodos).
		WithSummary("List todos").
		WithTags("todos")

	create := apidec.NewHandler("create-todo", "POST", createTodo).
		WithSummary("Create a todo").
		WithTags("todos").
		WithResponseStatus(http.StatusCreated)

	get := apidec.NewHandler("get-todo", "GET", getTodo).
		WithSummary("Get a todo by ID").
		WithTags("todos")

	routes := apidec.NewRoutes("example").
		Path("/todos", apidec.MethodRouter(map[string]apidec.Endpoint{
			"GET":  list,
			"POST": create,
		})).
		Path("/todos/<int:id>", get)

	if err := engine.Mount(routes); err != nil {
		log.Fatalf("[Main] Mount error: %v", err)
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		fmt.Println("[Main] Press Ctrl+C to shutdown gracefully")
		serverErrors <- engine.Start() // This blocks until server stops
	}()

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		log.Fatalf("[Main] Server error: %v", err)
	case sig := <-sigChan:
		fmt.Printf("\n[Main] Received signal: %v\n", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := engine.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Main] Shutdown error: %v", err)
		}

		fmt.Println("[Main] Shutdown complete")
	}
}
