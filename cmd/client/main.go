// Command client is a terminal client for the study room gateway: it joins a
// room, prints the live timer/roster/chat feed, and sends messages and timer
// controls from stdin.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

type clientFrame struct {
	Event   string `json:"event"`
	RoomID  string `json:"roomId"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

type serverFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type timerPayload struct {
	TimeLeft int    `json:"timeLeft"`
	Running  bool   `json:"running"`
	Phase    string `json:"phase"`
}

type sessionPayload struct {
	CurrentSession int `json:"currentSession"`
	TotalSessions  int `json:"totalSessions"`
}

type rosterPayload struct {
	Participants []struct {
		ConnectionID string `json:"connectionId"`
		UserID       string `json:"userId"`
		DisplayName  string `json:"displayName"`
	} `json:"participants"`
	AdminID string `json:"adminId"`
}

type messagePayload struct {
	DisplayName string `json:"displayName"`
	Message     string `json:"message"`
}

type historyEntryPayload struct {
	DisplayName string    `json:"displayName"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

type rejectedPayload struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

func main() {
	addr := flag.String("addr", "localhost:4000", "Gateway host:port")
	room := flag.String("room", "default", "Room to join")
	token := flag.String("token", "", "Auth token (see cmd/seed)")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "A -token is required; mint one with cmd/seed")
		os.Exit(1)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.WriteJSON(clientFrame{Event: "joinRoom", RoomID: *room, Token: *token}); err != nil {
		fmt.Fprintf(os.Stderr, "Join failed: %v\n", err)
		os.Exit(1)
	}
	color.Green.Printf("Joined room %q on %s\n", *room, *addr)
	color.Gray.Println("Type a message, or /toggle /reset /skip /quit")

	done := make(chan struct{})
	go readLoop(conn, done)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case line, ok := <-input:
			if !ok {
				return
			}
			frame, quit := frameFor(line, *room, *token)
			if quit {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if frame == nil {
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
				return
			}
		}
	}
}

// frameFor turns a stdin line into a wire frame. Slash commands map to timer
// controls; everything else is chat.
func frameFor(line, room, token string) (*clientFrame, bool) {
	switch strings.TrimSpace(line) {
	case "":
		return nil, false
	case "/quit":
		return nil, true
	case "/toggle":
		return &clientFrame{Event: "toggleTimer", RoomID: room}, false
	case "/reset":
		return &clientFrame{Event: "resetTimer", RoomID: room}, false
	case "/skip":
		return &clientFrame{Event: "skipPhase", RoomID: room}, false
	default:
		return &clientFrame{Event: "sendMessage", RoomID: room, Token: token, Message: line}, false
	}
}

func readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		var frame serverFrame
		if err := conn.ReadJSON(&frame); err != nil {
			color.Red.Printf("Connection closed: %v\n", err)
			return
		}
		render(frame)
	}
}

func render(frame serverFrame) {
	switch frame.Event {
	case "timerUpdate":
		var p timerPayload
		if json.Unmarshal(frame.Payload, &p) != nil {
			return
		}
		state := "paused"
		if p.Running {
			state = "running"
		}
		color.Cyan.Printf("[%s] %02d:%02d (%s)\n", p.Phase, p.TimeLeft/60, p.TimeLeft%60, state)
	case "sessionUpdate":
		var p sessionPayload
		if json.Unmarshal(frame.Payload, &p) != nil {
			return
		}
		color.Magenta.Printf("Session %d/%d\n", p.CurrentSession, p.TotalSessions)
	case "participantsUpdate":
		var p rosterPayload
		if json.Unmarshal(frame.Payload, &p) != nil {
			return
		}
		renderRoster(p)
	case "systemMessage":
		var text string
		if json.Unmarshal(frame.Payload, &text) != nil {
			return
		}
		color.Yellow.Printf("* %s\n", text)
	case "newMessage":
		var p messagePayload
		if json.Unmarshal(frame.Payload, &p) != nil {
			return
		}
		fmt.Printf("%s %s\n", color.Bold.Render(p.DisplayName+":"), p.Message)
	case "loadMessages":
		var entries []historyEntryPayload
		if json.Unmarshal(frame.Payload, &entries) != nil {
			return
		}
		for _, e := range entries {
			color.Gray.Printf("%s %s: %s\n", e.CreatedAt.Local().Format("15:04"), e.DisplayName, e.Message)
		}
	case "rejected":
		var p rejectedPayload
		if json.Unmarshal(frame.Payload, &p) != nil {
			return
		}
		color.Red.Printf("Rejected %s: %s\n", p.Op, p.Reason)
	}
}

func renderRoster(p rosterPayload) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "User ID", "Role"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")

	for _, m := range p.Participants {
		role := ""
		if m.ConnectionID == p.AdminID {
			role = "admin"
		}
		table.Append([]string{m.DisplayName, m.UserID, role})
	}
	table.Render()
}
