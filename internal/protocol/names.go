package protocol

import "strings"

// Logical folders inside the store. Purely a naming convention: the
// processor polls both, so placement affects nothing but listing order.
const (
	FolderPriority = "commands/priority"
	FolderGlobal   = "commands/global"
)

// Object name builders. These must stay bit-exact for compatibility with
// existing peers polling the same store.

// CommandObject returns the basename for a command with the given id.
func CommandObject(id string) string { return "command_" + id + ".json" }

// ResultObject returns the basename for a success result.
func ResultObject(id string) string { return "result_" + id + ".json" }

// ErrorObject returns the basename for an error result.
func ErrorObject(id string) string { return "error_" + id + ".json" }

// InstanceObject returns the name for an instance registration.
func InstanceObject(instanceID string) string { return "instance_" + instanceID + ".json" }

// HeartbeatObject returns the name for an instance heartbeat.
func HeartbeatObject(instanceID string) string { return "heartbeat_" + instanceID + ".json" }

// SessionObject returns the name for a session descriptor.
func SessionObject(sessionID string) string { return "session_" + sessionID + ".json" }

// CommandFolder returns the logical folder for a command priority.
func CommandFolder(priority string) string {
	if priority == PriorityHigh {
		return FolderPriority
	}
	return FolderGlobal
}

// CommandPath returns the full store name for a command at a priority.
func CommandPath(id, priority string) string {
	return CommandFolder(priority) + "/" + CommandObject(id)
}

// CommandIDFromPath extracts the command id from a store object name, or
// returns "" if the name is not a command object.
func CommandIDFromPath(name string) string {
	base := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		base = name[i+1:]
	}
	if !strings.HasPrefix(base, "command_") || !strings.HasSuffix(base, ".json") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "command_"), ".json")
}
