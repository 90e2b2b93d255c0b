package scheduler

import (
	"reflect"
	"strconv"
)

// Label is a stable, hashable identity: a type tag plus an integer index.
// weave's public label types (ScheduleLabel, SystemSetLabel, WorldLabel,
// ExecutorLabel) are distinct named types wrapping the same representation
// so that passing one where another is expected is a compile error, even
// though the runtime shape is identical.
type Label struct {
	Tag   reflect.Type
	Index int
}

// NewLabel builds a Label whose Tag identifies the concrete type of tag
// (typically an enum-like int constant's named type) and whose Index is
// the enum ordinal or other small integer distinguishing it from its
// siblings.
func NewLabel(tag any, index int) Label {
	return Label{Tag: reflect.TypeOf(tag), Index: index}
}

func (l Label) String() string {
	if l.Tag == nil {
		return "<nil label>"
	}
	return l.Tag.String() + "#" + strconv.Itoa(l.Index)
}
