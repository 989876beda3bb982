// Package client is a terminal driver for a game hosted by the server. It
// prints the board, asks for moves and supplies the bonus verdict for gated
// rosettes.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/royalur/board"
	"github.com/wfunc/royalur/network"
	"github.com/wfunc/royalur/state"
)

var (
	errQuit = errors.New("quit")
	// errRejected means the server refused the last action; the view is unchanged.
	errRejected = errors.New("rejected")
)

// Driver plays one game over conn, reading answers from in.
type Driver struct {
	conn network.Connection
	in   *bufio.Reader
	out  io.Writer
	topo *board.Topology
}

func NewDriver(conn network.Connection, in io.Reader, out io.Writer) *Driver {
	return &Driver{conn: conn, in: bufio.NewReader(in), out: out, topo: board.Standard()}
}

func (d *Driver) send(msgID uint16, v interface{}) error {
	return network.SendJSON(d.conn, msgID, v)
}

// await reads until the next full game view, printing events on the way.
func (d *Driver) await() (network.GameView, error) {
	for {
		packet, err := d.conn.ReadPacket()
		if err != nil {
			return network.GameView{}, err
		}
		switch packet.MsgID {
		case network.MsgTypeGameState:
			var view network.GameView
			err := packet.Unmarshal(&view)
			return view, err
		case network.MsgTypeRolled:
			var ev network.RolledEvent
			if packet.Unmarshal(&ev) == nil {
				fmt.Fprintf(d.out, "%s rolled %d\n", ev.Outcome.Player, ev.Outcome.Value)
			}
		case network.MsgTypeCaptured:
			var ev network.CapturedEvent
			if packet.Unmarshal(&ev) == nil {
				fmt.Fprintf(d.out, "%s captured a piece on %d!\n", ev.Consequence.Player, ev.Consequence.Destination)
			}
		case network.MsgTypeError:
			var resp network.ErrorResponse
			if packet.Unmarshal(&resp) == nil {
				fmt.Fprintf(d.out, "error: %s (%s)\n", resp.Message, resp.Code)
			}
			return network.GameView{}, errRejected
		}
	}
}

func (d *Driver) prompt(question string) (string, error) {
	fmt.Fprint(d.out, question)
	line, err := d.in.ReadString('\n')
	if err != nil && line == "" {
		return "", errQuit
	}
	line = strings.TrimSpace(line)
	if line == "q" || line == "quit" {
		return "", errQuit
	}
	return line, nil
}

// Play creates a game (or attaches to gameID) and drives it to the end or
// until the user quits.
func (d *Driver) Play(gameID string, seed *int64) error {
	var err error
	if gameID == "" {
		err = d.send(network.MsgTypeCreateGame, network.CreateGameRequest{Seed: seed})
	} else {
		err = d.send(network.MsgTypeAttachGame, network.AttachRequest{GameID: gameID})
	}
	if err != nil {
		return err
	}
	view, err := d.await()
	if err != nil {
		return err
	}
	fmt.Fprintf(d.out, "game %s\n", view.GameID)

	for {
		next, err := d.step(view)
		switch {
		case errors.Is(err, errQuit):
			fmt.Fprintf(d.out, "resume later with --game %s\n", view.GameID)
			return nil
		case errors.Is(err, errRejected):
			// refresh the view rather than retry against a stale phase
			if next, err = d.act(network.MsgTypeAttachGame, network.AttachRequest{GameID: view.GameID}); err != nil {
				return err
			}
		case err != nil:
			return err
		}
		if next.Phase.Kind == state.GameOver {
			fmt.Fprint(d.out, Render(&next.State, d.topo))
			fmt.Fprintf(d.out, "%s wins!\n", next.Phase.Player)
			return nil
		}
		view = next
	}
}

// step answers the current phase and returns the view that follows.
func (d *Driver) step(view network.GameView) (network.GameView, error) {
	phase := view.Phase
	switch phase.Kind {
	case state.AwaitingRoll:
		fmt.Fprint(d.out, Render(&view.State, d.topo))
		if _, err := d.prompt(fmt.Sprintf("%s to roll [enter] ", phase.Player)); err != nil {
			return view, err
		}
		return d.act(network.MsgTypeRoll, nil)

	case state.NoMoves:
		fmt.Fprintf(d.out, "%s has no moves with %d\n", phase.Player, phase.Roll)
		return d.act(network.MsgTypeAcknowledge, nil)

	case state.ResolvingConsequence:
		return d.act(network.MsgTypeAcknowledge, nil)

	case state.AwaitingMoveChoice:
		for i, m := range phase.Moves {
			fmt.Fprintf(d.out, "  %d) %s\n", i+1, describe(phase.Player, m))
		}
		answer, err := d.prompt("choose a move: ")
		if err != nil {
			return view, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr != nil || n < 1 || n > len(phase.Moves) {
			if err := d.send(network.MsgTypeReselect, nil); err != nil {
				return view, err
			}
			return d.await()
		}
		return d.act(network.MsgTypeChooseMove, network.MoveRequest{Move: phase.Moves[n-1]})

	case state.AwaitingBonusGate:
		answer, err := d.prompt(fmt.Sprintf("%s landed on a rosette. Bonus turn earned? [y/n] ", phase.Player))
		if err != nil {
			return view, err
		}
		earned := strings.HasPrefix(strings.ToLower(answer), "y")
		return d.act(network.MsgTypeBonusGate, network.BonusGateRequest{Earned: earned})
	}
	return view, fmt.Errorf("unexpected phase %s", phase.Kind)
}

func (d *Driver) act(msgID uint16, v interface{}) (network.GameView, error) {
	if err := d.send(msgID, v); err != nil {
		return network.GameView{}, err
	}
	return d.await()
}

// keepAlive sends heartbeats until stop is closed so the server keeps the
// session open while a player thinks.
func keepAlive(conn network.Connection, every time.Duration, stop <-chan struct{}) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.Send(network.MsgTypeHeartbeat, nil); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// NewCommand returns the `play` command.
func NewCommand() *cobra.Command {
	var (
		addr      string
		gameID    string
		seed      int64
		heartbeat time.Duration
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a hot-seat game in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
			conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", u.String(), err)
			}
			ws := network.NewWSConnection(conn)
			defer ws.Close()

			stop := make(chan struct{})
			defer close(stop)
			go keepAlive(ws, heartbeat, stop)

			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}
			return NewDriver(ws, cmd.InOrStdin(), cmd.OutOrStdout()).Play(gameID, seedPtr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "server address")
	cmd.Flags().StringVar(&gameID, "game", "", "resume an existing game instead of creating one")
	cmd.Flags().Int64Var(&seed, "seed", 0, "dice seed for a new game")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 15*time.Second, "interval between keep-alive packets")
	return cmd
}
