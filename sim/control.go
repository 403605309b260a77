package sim

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// SystemTarget addresses commands at the whole facility instead of one
// machine.
const SystemTarget = "SYSTEM"

// Command is one control message into the simulation.
type Command struct {
	MachineID string `json:"machine_id"`
	Command   string `json:"command"`
}

// Control applies a command to a machine (or the SYSTEM target). Recognized
// commands: start, stop, reset, maintenance, set_speed:<v>, adjust_speed:<d>.
// Unknown or malformed commands are logged and ignored; no command is ever
// an error to the caller. Returns whether the target was found.
func (f *Factory) Control(machineID, command string) bool {
	if machineID == SystemTarget {
		switch command {
		case "reset":
			f.Reset()
			return true
		case "prune_orders":
			f.PruneOrders()
			return true
		}
		logrus.Warnf("unknown SYSTEM command %q ignored", command)
		return false
	}

	m := f.Machine(machineID)
	if m == nil {
		logrus.Warnf("command %q for unknown machine %s ignored", command, machineID)
		return false
	}
	logrus.Infof("control: %s -> %s", machineID, command)

	switch {
	case command == "start":
		m.SetStatus(StatusRunning)

	case command == "stop":
		m.SetStatus(StatusIdle)

	case command == "reset":
		// A machine in ERROR cannot restart itself: reset requests a repair
		// visit instead, and a worker brings it back.
		if m.Status() == StatusError {
			m.SetStatus(StatusWaitingRepair)
		} else {
			m.Reset()
		}

	case command == "maintenance":
		m.SetStatus(StatusWaitingRepair)

	case strings.HasPrefix(command, "set_speed:"):
		if v, ok := commandValue(command); ok {
			m.SetSpeed(v)
		}

	case strings.HasPrefix(command, "adjust_speed:"):
		if v, ok := commandValue(command); ok {
			m.AdjustSpeed(v)
		}

	default:
		logrus.Warnf("unknown command %q for %s ignored", command, machineID)
	}
	return true
}

// commandValue parses the numeric payload of "cmd:<float>" commands.
func commandValue(command string) (float64, bool) {
	_, raw, ok := strings.Cut(command, ":")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		logrus.Warnf("malformed command value in %q ignored", command)
		return 0, false
	}
	return v, true
}
