package viewer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noemamarkets/pulse/pkg/protocol"
)

const helpText = "commands: add SYMBOL | rm SYMBOL | refresh | quit"

// Session turns typed lines into requests and server messages into output.
// A pending removal captures the next line as its y/N answer.
type Session struct {
	out    io.Writer
	sender Sender
	board  *Board
	logger *zap.Logger

	mu      sync.Mutex
	seq     int
	token   string
	pending string
}

func NewSession(out io.Writer, sender Sender, board *Board, logger *zap.Logger) *Session {
	return &Session{out: out, sender: sender, board: board, logger: logger}
}

// Subscribe asks for every section.
func (s *Session) Subscribe() error {
	return s.send(protocol.ActionSubscribe, protocol.RequestPayload{})
}

// HandleLine processes one line of input. It reports whether the viewer
// asked to quit.
func (s *Session) HandleLine(line string) (bool, error) {
	line = strings.TrimSpace(line)

	s.mu.Lock()
	token, sym := s.token, s.pending
	s.token, s.pending = "", ""
	s.mu.Unlock()

	if token != "" {
		answer := strings.ToLower(line)
		confirmed := answer == "y" || answer == "yes"
		s.logger.Debug("Answering removal", zap.String("symbol", sym), zap.Bool("confirmed", confirmed))
		return false, s.send(protocol.ActionConfirm, protocol.RequestPayload{Token: token, Confirmed: confirmed})
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "quit", "exit", "q":
		return true, nil
	case "add", "a":
		return false, s.send(protocol.ActionAdd, protocol.RequestPayload{Symbol: arg})
	case "rm", "remove", "del":
		return false, s.send(protocol.ActionRemove, protocol.RequestPayload{Symbol: arg})
	case "refresh", "r":
		s.redraw()
		return false, nil
	default:
		s.print(dimStyle.Render(helpText))
		return false, nil
	}
}

// HandleMessage applies one server message.
func (s *Session) HandleMessage(msg Message) {
	switch msg.Type {
	case protocol.TypeFrame:
		if err := s.board.Apply(msg.Section, msg.Data); err != nil {
			s.logger.Warn("Dropping frame", zap.String("section", msg.Section), zap.Error(err))
			return
		}
		s.redraw()
	case protocol.TypeConfirm:
		s.mu.Lock()
		s.token = msg.Token
		s.pending = msg.Message
		fmt.Fprint(s.out, noticeStyle.Render(msg.Message)+" [y/N] ")
		s.mu.Unlock()
	case protocol.TypeNotice:
		s.print(noticeStyle.Render(msg.Message))
	case protocol.TypeError:
		s.print(errorStyle.Render("error: " + msg.Message))
	case protocol.TypeAck:
		if msg.Message != "" {
			s.print(dimStyle.Render(msg.Message))
		}
	}
}

// Pending reports whether a removal waits for an answer.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

func (s *Session) send(action string, payload protocol.RequestPayload) error {
	s.mu.Lock()
	s.seq++
	id := strconv.Itoa(s.seq)
	s.mu.Unlock()

	if err := s.sender.Send(protocol.WSRequest{Action: action, Payload: payload, ID: id}); err != nil {
		return fmt.Errorf("send %s: %w", action, err)
	}
	return nil
}

func (s *Session) redraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Keep the prompt visible while a removal is pending.
	if s.token != "" {
		return
	}
	fmt.Fprint(s.out, "\033[H\033[2J"+s.board.Render()+"\n> ")
}

func (s *Session) print(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}
