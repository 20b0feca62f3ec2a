package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/prajyotgorlewar/BattleIDE/internal/model"
	"github.com/prajyotgorlewar/BattleIDE/internal/service"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	addr := pflag.String("grpc-addr", "localhost:50057", "address of the push service")
	userID := pflag.String("user-id", "", "recipient user id")
	eventType := pflag.String("type", string(model.EventSubmissionStatus), "event type")
	payload := pflag.String("payload", "{}", "event payload as JSON")
	timeout := pflag.Duration("timeout", 5*time.Second, "request timeout")
	pflag.Parse()

	if *userID == "" {
		log.Fatal("--user-id is required")
	}
	if !json.Valid([]byte(*payload)) {
		log.Fatal("--payload must be valid JSON")
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ev := model.Event{Type: model.EventType(*eventType), Payload: json.RawMessage(*payload)}
	delivered, err := service.NewPushClient(conn).Push(ctx, *userID, ev)
	if err != nil {
		log.Fatalf("push: %v", err)
	}
	fmt.Printf("delivered to %d connection(s)\n", delivered)
}
