package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrSuccessDerived is returned when setting success on a record whose
// success is derived from its job.
var ErrSuccessDerived = errors.New("success is derived from the job and cannot be set")

// Kind identifies the variant of a Record.
type Kind int

const (
	KindJobStart Kind = iota + 1
	KindJobFinish
	KindDeviceCreate
	KindDeviceMethodCall
	KindDeviceAttrSet
	KindTester
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindJobStart:
		return "job_start"
	case KindJobFinish:
		return "job_finish"
	case KindDeviceCreate:
		return "device_create"
	case KindDeviceMethodCall:
		return "device_method_call"
	case KindDeviceAttrSet:
		return "device_attr_set"
	case KindTester:
		return "result"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var now = time.Now

// Record is the outcome of one test action. Every kind exposes the same
// accessors; which values are stored and which are read from the referenced
// job or device depends on the kind. Descriptions are formatted on every
// call.
type Record struct {
	kind      Kind
	timestamp time.Time
	success   bool

	job    Job
	device Device

	// Device method call and attribute set.
	name     string
	args     Args
	value    any
	oldValue any

	// Tester supplied.
	description string
	data        any
	level       Level
	dataLevel   Level
}

// NewJobStartResult records that job was started on an agent.
func NewJobStartResult(job Job, success bool) *Record {
	return &Record{
		kind:      KindJobStart,
		timestamp: now(),
		success:   success,
		job:       job,
	}
}

// NewJobFinishResult records that job finished. Its success and data follow
// the job.
func NewJobFinishResult(job Job) *Record {
	return &Record{
		kind:      KindJobFinish,
		timestamp: now(),
		job:       job,
	}
}

// NewDeviceCreateResult records the creation of dev.
func NewDeviceCreateResult(success bool, dev Device) *Record {
	return &Record{
		kind:      KindDeviceCreate,
		timestamp: now(),
		success:   success,
		device:    dev,
	}
}

// NewDeviceMethodCallResult records a method call on dev.
func NewDeviceMethodCallResult(success bool, dev Device, method string, args Args) *Record {
	return &Record{
		kind:      KindDeviceMethodCall,
		timestamp: now(),
		success:   success,
		device:    dev,
		name:      method,
		args:      args,
	}
}

// NewDeviceAttrSetResult records setting attribute attr of dev from oldValue
// to value.
func NewDeviceAttrSetResult(success bool, dev Device, attr string, value, oldValue any) *Record {
	return &Record{
		kind:      KindDeviceAttrSet,
		timestamp: now(),
		success:   success,
		device:    dev,
		name:      attr,
		value:     value,
		oldValue:  oldValue,
	}
}

// Option configures a tester supplied result.
type Option func(*Record)

// WithDescription sets the description of a tester supplied result.
func WithDescription(description string) Option {
	return func(r *Record) {
		r.description = description
	}
}

// WithData attaches a payload to a tester supplied result.
func WithData(data any) Option {
	return func(r *Record) {
		r.data = data
	}
}

// WithLevel sets the level. Undefined levels are ignored and the default
// is kept.
func WithLevel(level Level) Option {
	return func(r *Record) {
		if level.Valid() {
			r.level = level
		}
	}
}

// WithDataLevel sets the data level. Undefined levels are ignored and the
// default is kept.
func WithDataLevel(level Level) Option {
	return func(r *Record) {
		if level.Valid() {
			r.dataLevel = level
		}
	}
}

// NewResult creates a tester supplied result. It defaults to LevelImportant
// with data shown one level below that.
func NewResult(success bool, opts ...Option) *Record {
	r := &Record{
		kind:      KindTester,
		timestamp: now(),
		success:   success,
		level:     LevelImportant,
		dataLevel: LevelImportant.Next(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Kind returns the record variant.
func (r *Record) Kind() Kind {
	return r.kind
}

// Timestamp returns the time the record was created.
func (r *Record) Timestamp() time.Time {
	return r.timestamp
}

// Job returns the referenced job, or nil for non-job records.
func (r *Record) Job() Job {
	return r.job
}

// Device returns the referenced device, or nil for non-device records.
func (r *Record) Device() Device {
	return r.device
}

// Success reports whether the recorded action succeeded.
func (r *Record) Success() bool {
	if r.kind == KindJobFinish {
		return r.job.Passed()
	}

	return r.success
}

// SetSuccess overrides the outcome. It fails for job finish records.
func (r *Record) SetSuccess(success bool) error {
	if r.kind == KindJobFinish {
		return ErrSuccessDerived
	}

	r.success = success

	return nil
}

// Description renders a one line summary from the current state of the
// referenced job or device.
func (r *Record) Description() string {
	switch r.kind {
	case KindJobStart:
		return fmt.Sprintf("Job started: %s", r.job)
	case KindJobFinish:
		return fmt.Sprintf("Job finished: %s", r.job)
	case KindDeviceCreate:
		return fmt.Sprintf("Creating Device %s = %s(%s)",
			devicePath(r.device), r.device.ClassName(), r.device.CreateArgs())
	case KindDeviceMethodCall:
		return fmt.Sprintf("Calling Device method %s.%s(%s)",
			devicePath(r.device), r.name, r.args)
	case KindDeviceAttrSet:
		return fmt.Sprintf("Setting Device attribute %s.%s = %v, previous value = %v",
			devicePath(r.device), r.name, r.value, r.oldValue)
	case KindTester:
		return r.description
	default:
		return ""
	}
}

// Data returns the payload attached to the record, if any.
func (r *Record) Data() any {
	switch r.kind {
	case KindJobFinish:
		return r.job.Result()
	case KindTester:
		return r.data
	default:
		return nil
	}
}

// Level returns the importance of the record.
func (r *Record) Level() Level {
	switch r.kind {
	case KindJobStart, KindJobFinish:
		return r.job.Level()
	case KindDeviceCreate, KindDeviceMethodCall, KindDeviceAttrSet:
		return LevelNormal
	case KindTester:
		return r.level
	default:
		return LevelDebug
	}
}

// DataLevel returns the importance of the record's payload.
func (r *Record) DataLevel() Level {
	switch r.kind {
	case KindTester:
		return r.dataLevel
	default:
		return r.Level().Next()
	}
}

// recordView is the encoded form of a Record.
type recordView struct {
	Kind        string    `json:"kind" yaml:"kind"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Success     bool      `json:"success" yaml:"success"`
	Description string    `json:"description" yaml:"description"`
	Level       Level     `json:"level" yaml:"level"`
	DataLevel   Level     `json:"data_level" yaml:"data_level"`
}

func (r *Record) view() recordView {
	return recordView{
		Kind:        r.kind.String(),
		Timestamp:   r.timestamp,
		Success:     r.Success(),
		Description: r.Description(),
		Level:       r.Level(),
		DataLevel:   r.DataLevel(),
	}
}

// MarshalJSON encodes the record as seen at the time of the call. The
// payload is left out; reports add it when its data level is visible.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

// MarshalYAML encodes the record like MarshalJSON.
func (r *Record) MarshalYAML() (any, error) {
	return r.view(), nil
}
