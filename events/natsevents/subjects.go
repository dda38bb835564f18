package natsevents

import "strings"

// SubjectDispatch is the global subject receiving every dispatch event.
const SubjectDispatch = "rpc.dispatch"

// BuildDispatchSubject returns the granular per-method subject. Dots inside
// the method name become underscores so every granular subject stays one
// token under the global one and "rpc.dispatch.*" matches them all.
func BuildDispatchSubject(method string) string {
	if method == "" {
		method = "unknown"
	}
	return SubjectDispatch + "." + strings.ReplaceAll(method, ".", "_")
}
