package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"codeduel/internal/cli/command"
	httpclient "codeduel/internal/cli/http"
	"codeduel/internal/cli/state"
	"codeduel/internal/duel/model"
	appErr "codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"go.uber.org/zap"
)

const prompt = "duel> "

// Options wires a REPL session.
type Options struct {
	Env         *command.Env
	Commands    map[string]command.Command
	HTTP        *httpclient.Client
	State       *state.ActorState
	StatePath   string
	HistoryFile string
	PrettyJSON  bool
	Out         io.Writer
}

// Session holds REPL state.
type Session struct {
	env         *command.Env
	commands    map[string]command.Command
	http        *httpclient.Client
	actorState  *state.ActorState
	statePath   string
	historyFile string
	prettyJSON  bool
	out         io.Writer
	rl          *readline.Instance
}

func New(opts Options) *Session {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	st := opts.State
	if st == nil {
		st = &state.ActorState{}
	}
	return &Session{
		env:         opts.Env,
		commands:    opts.Commands,
		http:        opts.HTTP,
		actorState:  st,
		statePath:   opts.StatePath,
		historyFile: opts.HistoryFile,
		prettyJSON:  opts.PrettyJSON,
		out:         out,
	}
}

// Run reads lines until exit, EOF or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     s.historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    s.completer(),
		Stdout:          s.out,
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	s.rl = rl
	defer func() {
		_ = rl.Close()
		s.rl = nil
	}()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		if s.Exec(ctx, line) {
			return nil
		}
	}
	return nil
}

// Exec handles one input line and reports whether the REPL should stop.
func (s *Session) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if handled, quit := s.handleSystemCommand(line); handled {
		return quit
	}
	if err := s.handleCommand(ctx, line); err != nil {
		s.printError(err)
	}
	return false
}

func (s *Session) completer() *readline.PrefixCompleter {
	byService := map[string][]readline.PrefixCompleterInterface{}
	var services []string
	for _, key := range command.Keys(s.commands) {
		cmd := s.commands[key]
		if _, ok := byService[cmd.Service]; !ok {
			services = append(services, cmd.Service)
		}
		byService[cmd.Service] = append(byService[cmd.Service], readline.PcItem(cmd.Action))
	}
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout")),
		readline.PcItem("show", readline.PcItem("config"), readline.PcItem("actor"), readline.PcItem("session")),
	}
	for _, service := range services {
		items = append(items, readline.PcItem(service, byService[service]...))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) handleSystemCommand(line string) (handled, quit bool) {
	switch line {
	case "exit", "quit":
		s.printLine("bye")
		return true, true
	case "help":
		s.printHelp()
		return true, false
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true, false
	}
	if strings.HasPrefix(line, "show ") {
		s.handleShow(strings.TrimSpace(strings.TrimPrefix(line, "show ")))
		return true, false
	}
	return false, false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout")
		return
	}
	if s.http == nil {
		s.printLine("transport settings are not available")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8080")
			return
		}
		s.http.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.http.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleShow(args string) {
	switch args {
	case "actor":
		actor, ok := s.env.Client.Actor()
		if !ok {
			s.printLine("actor: <none>")
			return
		}
		s.printLine("actor: %s (id=%d)", actor.Nickname, actor.ID)
	case "session":
		if s.env.Current() == "" {
			s.printLine("session: <none>")
			return
		}
		s.printLine("session: %s", s.env.Current())
	case "config":
		if s.http != nil {
			s.printLine("base: %s", s.http.BaseURL())
		}
		s.printLine("scheduling: %s", s.env.Client.Scheduling())
		s.printLine("statePath: %s", s.statePath)
	default:
		s.printLine("usage: show actor|session|config")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) < 2 {
		return fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	key := fmt.Sprintf("%s %s", tokens[0], tokens[1])
	cmd, ok := s.commands[key]
	if !ok {
		return fmt.Errorf("unknown command: %s", key)
	}
	params := command.Params{}
	for _, token := range tokens[2:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}

	started := time.Now()
	result, err := s.env.Execute(ctx, cmd, params)
	if err != nil {
		return err
	}
	s.renderResult(result, time.Since(started))
	s.updateStateFromResult(ctx, cmd, result)
	return nil
}

// promptMissing asks for required fields interactively; without a terminal
// the command fails on its own required-field check.
func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	if s.rl == nil {
		return nil
	}
	for _, field := range cmd.Fields {
		if !field.Required || params.Provided(field) {
			continue
		}
		value, err := s.promptValue(field)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(field command.Field) (string, error) {
	label := field.Prompt + ": "
	if field.Name == "password" {
		raw, err := s.rl.ReadPassword(label)
		if err != nil {
			return "", fmt.Errorf("read input failed: %w", err)
		}
		return string(raw), nil
	}
	s.rl.SetPrompt(label)
	defer s.rl.SetPrompt(prompt)
	line, err := s.rl.Readline()
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) renderResult(result interface{}, elapsed time.Duration) {
	var (
		data []byte
		err  error
	)
	if s.prettyJSON {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		s.printLine("%v", result)
		return
	}
	s.printLine("%s", string(data))
	s.printLine("(%s)", elapsed.Round(time.Millisecond))
}

// updateStateFromResult persists the actor and the transport cookies after
// login and forgets them after logout.
func (s *Session) updateStateFromResult(ctx context.Context, cmd command.Command, result interface{}) {
	if cmd.Service != "user" || s.statePath == "" {
		return
	}
	switch cmd.Action {
	case "login":
		actor, ok := result.(model.Actor)
		if !ok {
			return
		}
		*s.actorState = state.FromActor(actor, s.cookies())
		if err := state.Save(s.statePath, *s.actorState); err != nil {
			logger.Warn(ctx, "save actor state failed", zap.Error(err))
		}
	case "logout":
		*s.actorState = state.ActorState{}
		if err := state.Clear(s.statePath); err != nil {
			logger.Warn(ctx, "clear actor state failed", zap.Error(err))
		}
	}
}

func (s *Session) cookies() []*http.Cookie {
	if s.http == nil {
		return nil
	}
	return s.http.Cookies()
}

func (s *Session) printError(err error) {
	var e *appErr.Error
	if errors.As(err, &e) {
		s.printLine("error %d: %s", int(e.Code), e.Error())
		return
	}
	s.printLine("error: %v", err)
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | set base|timeout | show actor|session|config")
	s.printLine("commands:")
	for _, key := range command.Keys(s.commands) {
		s.printLine("  %-22s %s", key, s.commands[key].Summary)
	}
	s.printLine("examples:")
	s.printLine("  user login email=ada@example.com password=secret")
	s.printLine("  session create languages=Python3,Go modes=fastest,shortest")
	s.printLine("  session play language=Python3 code_file=./main.py tests=1,2")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
