package model

// IoOpKind tags an IoCommand variant. The wire encoding used by
// engine/ioclient/mover assigns each kind a one-byte op code.
type IoOpKind int

const (
	IoCopy IoOpKind = iota
	IoTouch
)

// IoCommand is one unit of work dispatched to the IoClient. Each command
// carries an implicit single-response contract: exactly one of IoSuccess,
// IoFailAck, or IoReadForbiddenFailure will be delivered for it.
type IoCommand struct {
	ID   string // correlates the command to its response
	Kind IoOpKind
	Src  string // source path (Copy only)
	Dst  string // destination path (Copy) or target path (Touch)
}

// IoResultKind tags the outcome of a dispatched IoCommand.
type IoResultKind int

const (
	IoSuccess IoResultKind = iota
	IoFailAck
	IoReadForbiddenFailure
)

// IoResult is what the IoClient delivers back for a dispatched IoCommand.
type IoResult struct {
	Command      IoCommand
	Kind         IoResultKind
	ForbiddenPath string // set only when Kind == IoReadForbiddenFailure
	Err          error   // set when Kind != IoSuccess
}

// CacheCopyData is the working state of one Cache-Hit Copy FSM instance
// (spec §4.8): an ordered list of command sets, where the head set is the
// one currently in flight.
type CacheCopyData struct {
	CommandsToWaitFor [][]IoCommand
	NewJobOutputs     CallOutputs
	NewDetritus       map[string]string
	CacheHitID        string
	ReturnCode        int
}

// HeadSet returns the in-flight command set, or nil if none remain.
func (d *CacheCopyData) HeadSet() []IoCommand {
	if len(d.CommandsToWaitFor) == 0 {
		return nil
	}
	return d.CommandsToWaitFor[0]
}

// RemoveFromHead removes a completed command from the head set by ID.
// Reports whether the head set is now empty.
func (d *CacheCopyData) RemoveFromHead(id string) (headEmpty bool) {
	if len(d.CommandsToWaitFor) == 0 {
		return true
	}
	head := d.CommandsToWaitFor[0]
	filtered := head[:0]
	for _, c := range head {
		if c.ID != id {
			filtered = append(filtered, c)
		}
	}
	d.CommandsToWaitFor[0] = filtered
	return len(filtered) == 0
}

// AdvanceSet drops the (now-empty) head set. Reports whether any sets remain.
func (d *CacheCopyData) AdvanceSet() (hasMore bool) {
	if len(d.CommandsToWaitFor) > 0 {
		d.CommandsToWaitFor = d.CommandsToWaitFor[1:]
	}
	return len(d.CommandsToWaitFor) > 0
}

// AllDone reports whether every command set has drained.
func (d *CacheCopyData) AllDone() bool {
	return len(d.CommandsToWaitFor) == 0
}
