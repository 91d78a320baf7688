// Package main is an interactive terminal client for group chats with
// AI characters.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/easeaico/ensemble/internal/chat"
	"github.com/easeaico/ensemble/internal/config"
	"github.com/easeaico/ensemble/internal/intent"
	"github.com/easeaico/ensemble/internal/memory"
	"github.com/easeaico/ensemble/internal/models"
	"github.com/easeaico/ensemble/internal/orchestrator"
	"github.com/easeaico/ensemble/internal/profile"
	"github.com/easeaico/ensemble/internal/prompt"
	"github.com/easeaico/ensemble/internal/selector"
	"github.com/easeaico/ensemble/internal/storage"
	"github.com/easeaico/ensemble/internal/types"
)

const (
	turnHistoryWindow = 4

	// Pause between autonomous turns so the console stays readable.
	turnInterval = 2 * time.Second
)

type console struct {
	svc     *chat.Service
	groupID string
	soloID  string

	mu      sync.Mutex
	driving map[string]bool
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeStore, err := buildService(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer closeStore()

	c := &console{svc: svc, driving: make(map[string]bool)}
	c.run(ctx)
}

func buildService(ctx context.Context, cfg config.Config) (*chat.Service, func(), error) {
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	clientConfig := &genai.ClientConfig{APIKey: cfg.XAIAPIKey}
	llm, err := models.NewLLM(ctx, cfg.LLMProvider, cfg.LLMModel, clientConfig)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create chat model: %w", err)
	}
	generator := models.NewTextGenerator(llm)

	opinions, err := intent.NewOpinionAgent(llm)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create opinion agent: %w", err)
	}

	var profileOpts []profile.Option
	var embedder chat.Embedder
	var recall chat.Recaller
	if cfg.GoogleAPIKey != "" {
		emb, err := memory.NewEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("create embedder: %w", err)
		}
		embedder = emb
		recall = memory.NewRecall(emb, store.History, cfg.RecallTopK, cfg.RecallMinScore)

		if images, err := models.NewGeminiImageGenerator(ctx, cfg.GoogleAPIKey, cfg.ImageModel, "1:1"); err == nil {
			profileOpts = append(profileOpts, profile.WithImageGenerator(images))
		}
	}

	profiles, err := profile.NewGenerator(llm, profileOpts...)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("create profile generator: %w", err)
	}

	analyzer := intent.NewAnalyzer()
	svc := chat.NewService(chat.Config{
		Characters:   store.Characters,
		Groups:       store.Groups,
		History:      store.History,
		Profiles:     profiles,
		Generator:    generator,
		Engine:       orchestrator.NewEngine(generator, prompt.NewBuilder(turnHistoryWindow)),
		Policy:       selector.NewPriorityPolicy(analyzer, opinions),
		Analyzer:     analyzer,
		Prompts:      prompt.NewBuilder(0),
		Embedder:     embedder,
		Recall:       recall,
		HistoryLimit: cfg.HistoryLimit,
	})
	return svc, func() { store.Close() }, nil
}

func (c *console) run(ctx context.Context) {
	fmt.Println("🎭 Ensemble group chat. Type /help for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		c.printPrompt()
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if strings.HasPrefix(line, "/") {
			if !c.command(ctx, line) {
				return
			}
			continue
		}
		c.message(ctx, line)
	}
}

func (c *console) printPrompt() {
	switch {
	case c.soloID != "":
		fmt.Printf("[solo %s] > ", c.soloID)
	case c.groupID != "":
		fmt.Printf("[%s] > ", c.groupID)
	default:
		fmt.Print("> ")
	}
}

// command handles a slash command. It returns false when the user quits.
func (c *console) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return false
	case "/help":
		printHelp()
	case "/characters":
		c.listCharacters(ctx)
	case "/create":
		c.createCharacter(ctx, strings.Join(args, " "))
	case "/groups":
		c.listGroups(ctx)
	case "/newgroup":
		c.createGroup(ctx, args)
	case "/join":
		c.joinGroup(ctx, args)
	case "/solo":
		c.enterSolo(ctx, args)
	case "/leave":
		c.soloID = ""
		c.groupID = ""
	case "/stats":
		c.stats(ctx)
	case "/recall":
		c.recallMessages(ctx, strings.Join(args, " "))
	default:
		fmt.Printf("unknown command %s, try /help\n", cmd)
	}
	return true
}

func printHelp() {
	fmt.Print(`Commands:
  /characters              list characters
  /create <name>           generate a character profile
  /groups                  list group chats
  /newgroup <name> <a,b>   create a group with comma separated members
  /join <group-id>         enter a group chat
  /solo <character-id>     one on one chat with a character
  /leave                   leave the current chat
  /stats                   show group statistics
  /recall <query>          search past messages semantically
  /quit                    exit
Say "debate about X vs Y" in a group to start a debate, "stop" to end it.
`)
}

func (c *console) listCharacters(ctx context.Context) {
	profiles, err := c.svc.ListCharacters(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(profiles) == 0 {
		fmt.Println("no characters yet, use /create <name>")
		return
	}
	for _, p := range profiles {
		fmt.Printf("  %s  %s\n", p.ID, p.Name)
	}
}

func (c *console) createCharacter(ctx context.Context, name string) {
	if name == "" {
		fmt.Println("usage: /create <name>")
		return
	}
	fmt.Printf("researching %s...\n", name)
	p, err := c.svc.CreateCharacter(ctx, name)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("✅ %s (%s): %s\n", p.Name, p.ID, p.Personality)
}

func (c *console) listGroups(ctx context.Context) {
	groups, err := c.svc.ListGroups(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(groups) == 0 {
		fmt.Println("no groups yet, use /newgroup <name> <a,b>")
		return
	}
	for _, g := range groups {
		fmt.Printf("  %s  %s (%s)\n", g.ID, g.Name, strings.Join(g.Members, ", "))
	}
}

func (c *console) createGroup(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: /newgroup <name> <member,member>")
		return
	}
	members := strings.Split(args[len(args)-1], ",")
	name := strings.Join(args[:len(args)-1], " ")
	g, err := c.svc.CreateGroup(ctx, name, members)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	c.groupID = g.ID
	c.soloID = ""
	fmt.Printf("✅ group %s created with %s\n", g.ID, strings.Join(g.Members, ", "))
}

func (c *console) joinGroup(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: /join <group-id>")
		return
	}
	g, err := c.svc.GetGroup(ctx, args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	c.groupID = g.ID
	c.soloID = ""
	fmt.Printf("joined %s with %s\n", g.Name, strings.Join(g.Members, ", "))
}

func (c *console) enterSolo(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: /solo <character-id>")
		return
	}
	p, err := c.svc.GetCharacter(ctx, args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	c.soloID = p.ID
	c.groupID = ""
	fmt.Printf("chatting with %s, /leave to exit\n", p.Name)
}

func (c *console) stats(ctx context.Context) {
	if c.groupID == "" {
		fmt.Println("join a group first")
		return
	}
	stats, err := c.svc.GroupStats(ctx, c.groupID)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("messages: %d\n", stats.TotalMessages)
	for id, count := range stats.CharacterMessageCounts {
		fmt.Printf("  %s: %d\n", id, count)
	}
}

func (c *console) recallMessages(ctx context.Context, query string) {
	if c.groupID == "" {
		fmt.Println("join a group first")
		return
	}
	if query == "" {
		fmt.Println("usage: /recall <query>")
		return
	}
	results, err := c.svc.RecallMessages(ctx, c.groupID, query)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(results) == 0 {
		fmt.Println("nothing relevant found")
		return
	}
	for _, r := range results {
		speaker := r.CharacterName
		if speaker == "" {
			speaker = r.Role
		}
		fmt.Printf("  [%.2f] %s: %s\n", r.Similarity, speaker, r.Content)
	}
}

func (c *console) message(ctx context.Context, text string) {
	if c.soloID != "" {
		reply, err := c.svc.SoloChat(ctx, c.soloID, text)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("%s: %s\n", c.soloID, reply)
		return
	}
	if c.groupID == "" {
		fmt.Println("join a group first, or /solo a character")
		return
	}

	replies, err := c.svc.SendMessage(ctx, c.groupID, text)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, msg := range replies {
		printMessage(msg)
	}

	if _, active := c.svc.AutonomousStatus(c.groupID); active {
		c.driveAutonomous(ctx, c.groupID)
	}
}

// driveAutonomous ticks the running conversation in the background so
// the user can keep typing (for example "stop").
func (c *console) driveAutonomous(ctx context.Context, groupID string) {
	c.mu.Lock()
	if c.driving[groupID] {
		c.mu.Unlock()
		return
	}
	c.driving[groupID] = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.driving, groupID)
			c.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(turnInterval):
			}
			msg, err := c.svc.Tick(ctx, groupID)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				return
			}
			if msg == nil {
				return
			}
			printMessage(*msg)
		}
	}()
}

func printMessage(msg types.ConversationMessage) {
	switch msg.Role {
	case types.RoleSystem:
		fmt.Println(msg.Content)
	default:
		name := msg.CharacterName
		if name == "" {
			name = msg.CharacterID
		}
		fmt.Printf("%s: %s\n", name, msg.Content)
	}
}
