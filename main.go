package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	auditx "github.com/bankabc/voice-agent/agent/audit"
	contractx "github.com/bankabc/voice-agent/agent/contract"
	datax "github.com/bankabc/voice-agent/agent/data"
	flowx "github.com/bankabc/voice-agent/agent/flow"
	intentx "github.com/bankabc/voice-agent/agent/intent"
	orchestratorx "github.com/bankabc/voice-agent/agent/orchestrator"
	statex "github.com/bankabc/voice-agent/agent/state"
	toolx "github.com/bankabc/voice-agent/agent/tool"
	verifyx "github.com/bankabc/voice-agent/agent/verify"
	configx "github.com/bankabc/voice-agent/pkg/config"
	groqx "github.com/bankabc/voice-agent/pkg/groq"
	langfusex "github.com/bankabc/voice-agent/pkg/langfuse"
	_ "github.com/bankabc/voice-agent/pkg/logger/autoload"
)

type AppConfig struct {
	DataBackend     string        `envconfig:"DATA_BACKEND" default:"file"` // file | postgres
	DataDir         string        `envconfig:"DATA_DIR"`
	GroqEnabled     bool          `envconfig:"GROQ_ENABLED" default:"false"`
	LangfuseEnabled bool          `envconfig:"LANGFUSE_ENABLED" default:"false"`
	SessionMaxIdle  time.Duration `envconfig:"SESSION_MAX_IDLE" split_words:"true" default:"30m"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	accessor := buildAccessor(appCfg)
	auditor := buildAuditor(appCfg)

	gateCfg := configx.MustNew[verifyx.Config]("VERIFY")
	gate, err := verifyx.NewGate(accessor, auditor, *gateCfg)
	if err != nil {
		panic(err)
	}

	tools, err := toolx.NewExecutor(accessor, gate, auditor)
	if err != nil {
		panic(err)
	}

	handlers := append(flowx.StubHandlers(),
		flowx.NewCardATMHandler(tools),
		flowx.NewAccountServicingHandler(tools),
	)
	dispatcher, err := flowx.NewDispatcher(tools, handlers...)
	if err != nil {
		panic(err)
	}

	var completer contractx.Completer
	if appCfg.GroqEnabled {
		groqCfg := configx.MustNew[groqx.Config]("GROQ")
		client, err := groqx.NewClient(*groqCfg)
		if err != nil {
			panic(err)
		}
		completer = client
	}

	svc, err := orchestratorx.New(
		statex.NewMemoryStore(),
		gate,
		intentx.NewRuleClassifier(),
		dispatcher,
		completer,
		auditor,
	)
	if err != nil {
		panic(err)
	}

	go reapIdleSessions(svc, appCfg.SessionMaxIdle)

	runREPL(svc)
}

func reapIdleSessions(svc *orchestratorx.Orchestrator, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle)
	defer ticker.Stop()
	for range ticker.C {
		if n := svc.ReapIdleSessions(maxIdle); n > 0 {
			log.Debug().Int("sessions", n).Msg("reaped idle sessions")
		}
	}
}

func buildAccessor(cfg *AppConfig) datax.Accessor {
	if strings.EqualFold(cfg.DataBackend, "postgres") {
		pgCfg := configx.MustNew[datax.PostgresConfig]("POSTGRES")
		store, err := datax.NewBunStore(*pgCfg)
		if err != nil {
			panic(err)
		}
		return store
	}
	store, err := datax.NewFileStore(cfg.DataDir)
	if err != nil {
		panic(err)
	}
	return store
}

func buildAuditor(cfg *AppConfig) auditx.Emitter {
	sinks := auditx.Fanout{auditx.NewRecorder(), auditx.LogEmitter{}}
	if cfg.LangfuseEnabled {
		lfCfg := configx.MustNew[langfusex.Config]("LANGFUSE")
		sinks = append(sinks, auditx.NewTraceSink(langfusex.MustNew(*lfCfg)))
	}
	return auditx.NewStamper(sinks)
}

// runREPL is a stand-in for the excluded transport layer: one session, one
// turn per line. "verify <customer-id> <pin>" submits credentials.
func runREPL(svc *orchestratorx.Orchestrator) {
	sessionID := uuid.NewString()
	fmt.Println("Bank ABC assistant ready. Type a message, or 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		req := contractx.TurnRequest{SessionID: sessionID, Text: line}
		if fields := strings.Fields(line); len(fields) == 3 && strings.EqualFold(fields[0], "verify") {
			req = contractx.TurnRequest{SessionID: sessionID, CustomerID: fields[1], PIN: fields[2]}
		}

		resp, err := svc.HandleTurn(context.Background(), req)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("Sorry, something went wrong. Please try again.")
			continue
		}
		fmt.Println(resp.Response)
	}
}
