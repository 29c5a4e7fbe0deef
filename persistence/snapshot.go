// Package persistence captures and restores a session's GlobalSessionState
// for inspection or cold storage (SPEC_FULL §A "Snapshot persistence",
// §C.6 session finish modes). This is not the binary Fsm serializer of
// spec §6 (that format belongs to an external serializer and is out of
// scope here) — it snapshots a *running session's* mutable state, the way
// the teacher's production.Persister snapshots a Machine's configuration.
package persistence

import (
	"strconv"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// Snapshot is the persisted shape of one session's GlobalSessionState. It
// carries both JSON and YAML struct tags side by side, matching the
// teacher's machineconfig.go / persister.go convention of supporting
// either codec from one struct.
type Snapshot struct {
	SessionId          string                        `json:"sessionId" yaml:"sessionId"`
	ParentSessionId     string                        `json:"parentSessionId,omitempty" yaml:"parentSessionId,omitempty"`
	CallerInvokeId      string                        `json:"callerInvokeId,omitempty" yaml:"callerInvokeId,omitempty"`
	Running             bool                          `json:"running" yaml:"running"`
	Configuration       []scxmlfsm.StateId            `json:"configuration" yaml:"configuration"`
	StatesToInvoke      []scxmlfsm.StateId            `json:"statesToInvoke,omitempty" yaml:"statesToInvoke,omitempty"`
	HistoryValues       map[string][]scxmlfsm.StateId `json:"historyValues,omitempty" yaml:"historyValues,omitempty"`
	FinalConfiguration  []scxmlfsm.StateId            `json:"finalConfiguration,omitempty" yaml:"finalConfiguration,omitempty"`
}

// Capture builds a point-in-time Snapshot of g. The running flag, the
// configuration and the history values are read through
// GlobalSessionState's locking accessors; StatesToInvoke, FinalConfiguration
// and the id fields are read directly, without taking the session lock. The
// result is only a snapshot, not a consistent pause.
func Capture(g *scxmlfsm.GlobalSessionState) Snapshot {
	hv := g.HistoryValuesSnapshot()
	historyValues := make(map[string][]scxmlfsm.StateId, len(hv))
	for k, v := range hv {
		historyValues[strconv.FormatUint(uint64(k), 10)] = v
	}

	return Snapshot{
		SessionId:          g.SessionId,
		ParentSessionId:    g.ParentSessionId,
		CallerInvokeId:     g.CallerInvokeId,
		Running:            g.IsRunning(),
		Configuration:      g.ConfigurationSnapshot(),
		StatesToInvoke:     g.StatesToInvoke.ToList(),
		HistoryValues:      historyValues,
		FinalConfiguration: append([]scxmlfsm.StateId(nil), g.FinalConfiguration...),
	}
}

// Restore rebuilds a fresh GlobalSessionState from a Snapshot, for
// inspection (e.g. a FinishKeepConfiguration session reloaded from disk)
// rather than to resume a live worker — queues, child-session tables and
// pending timers are not part of the snapshot and come back empty.
func Restore(s Snapshot) *scxmlfsm.GlobalSessionState {
	g := scxmlfsm.NewGlobalSessionState(s.SessionId)
	g.ParentSessionId = s.ParentSessionId
	g.CallerInvokeId = s.CallerInvokeId
	for _, id := range s.Configuration {
		g.EnterState(id)
	}
	for _, id := range s.StatesToInvoke {
		g.StatesToInvoke.Add(id)
	}
	for k, v := range s.HistoryValues {
		id, err := strconv.ParseUint(k, 10, 32)
		if err != nil {
			continue
		}
		g.RecordHistory(scxmlfsm.StateId(id), v)
	}
	if !s.Running {
		g.Stop()
		g.FinalConfiguration = append([]scxmlfsm.StateId(nil), s.FinalConfiguration...)
	}
	return g
}
