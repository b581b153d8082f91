// Package safeexec implements the defense-in-depth pipeline that stands
// between a call_tool request and a spawned child process: whitelist and
// blacklist checks, path validation, argument sanitization, a resource
// limited spawn, and output capture. The alias table (Aliases) is resolved
// ahead of the whitelist/blacklist checks.
package safeexec

// Whitelist is the set of command names the pipeline will ever spawn.
// Anything not in this list is rejected regardless of the blacklist.
var Whitelist = map[string]bool{
	"pwd": true, "echo": true, "ls": true, "cat": true, "date": true,
	"whoami": true, "hostname": true, "cd": true, "env": true,
	"export": true, "set": true, "unset": true, "help": true,
	"version": true, "history": true, "myls": true, "mycat": true,
	"mycp": true, "mymv": true, "myrm": true, "mymkdir": true,
	"myrmdir": true, "mytouch": true, "mystat": true, "myfd": true,
	"grep": true, "find": true, "wc": true, "head": true, "tail": true,
	"sort": true, "uniq": true,
}

// Blacklist is always rejected, checked before the whitelist so a name
// present in both is still refused.
var Blacklist = map[string]bool{
	"sudo": true, "su": true, "chmod": true, "chown": true, "rm": true,
	"dd": true, "mkfs": true, "fdisk": true, "reboot": true,
	"shutdown": true, "halt": true, "poweroff": true, "kill": true,
	"killall": true, "iptables": true, "systemctl": true, "service": true,
}

// IsSafeCommand reports whether name may be spawned: present in the
// whitelist and absent from the blacklist.
func IsSafeCommand(name string) bool {
	if Blacklist[name] {
		return false
	}
	return Whitelist[name]
}

// Aliases resolves a human-readable tool name to its catalog command
// before whitelist/blacklist checks run. Unknown names pass through
// unchanged.
var Aliases = map[string]string{
	"list_directory":    "ls",
	"change_directory":  "cd",
	"remove_file":       "myrm",
	"copy_file":         "mycp",
	"move_file":         "mymv",
	"create_directory":  "mymkdir",
	"remove_directory":  "myrmdir",
	"display_file":      "mycat",
}

// ResolveAlias maps name through the alias table, returning name itself
// when no alias applies.
func ResolveAlias(name string) string {
	if resolved, ok := Aliases[name]; ok {
		return resolved
	}
	return name
}
