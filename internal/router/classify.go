// Package router decides whether user input is a shell command or a prompt,
// and which provider and local model a prompt should go to first.
package router

import (
	"strings"
	"unicode/utf8"
)

// Category is the coarse kind of a prompt. It only selects a local model.
type Category int

const (
	Coding Category = iota
	Quick
	Complex
	System
)

func (c Category) String() string {
	switch c {
	case Coding:
		return "coding"
	case Quick:
		return "quick"
	case Complex:
		return "complex"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

// commandVerbs are first tokens that mark input as a shell command.
var commandVerbs = map[string]bool{
	"cd": true, "ls": true, "pwd": true, "cat": true, "echo": true, "touch": true,
	"rm": true, "mv": true, "cp": true, "mkdir": true, "rmdir": true,
	"git": true, "cargo": true, "python": true, "pip": true, "rustc": true,
	"curl": true, "wget": true, "tar": true, "zip": true, "unzip": true,
	"grep": true, "sed": true, "awk": true, "find": true,
	"ps": true, "top": true, "kill": true, "chmod": true, "chown": true, "sudo": true,
	"pacman": true, "apt": true, "apt-get": true, "yum": true, "brew": true, "dnf": true, "zypper": true,
	"npm": true, "yarn": true, "pnpm": true, "node": true,
	"docker": true, "docker-compose": true,
	"systemctl": true, "journalctl": true, "service": true,
	"which": true, "whereis": true, "file": true, "lsof": true,
	"make": true, "ninja": true, "cmake": true, "gcc": true, "clang": true,
	"go": true, "ruby": true, "php": true, "test": true, "[": true,
	"head": true, "tail": true, "wc": true, "sort": true, "uniq": true, "cut": true, "paste": true, "tr": true,
}

var commandOperators = []string{"|", ">", "&&", ";"}

// systemQueryKeywords force a prompt onto the local provider.
var systemQueryKeywords = []string{
	// package management
	"pacman", "paru", "yay", "aur", "package", "install", "update", "upgrade",
	// system administration
	"systemd", "systemctl", "journalctl", "service", "daemon", "boot",
	// desktop
	"kde", "plasma", "kwin", "krunner", "konsole", "dolphin", "kconfig",
	"wayland", "x11", "xorg", "display", "screen", "monitor", "compositor",
	// filesystem
	"filesystem", "partition", "mount", "fstab", "disk", "df", "du",
	// system info
	"uname", "arch", "kernel", "cpu", "memory", "ram", "hardware",
	// shells
	"terminal", "shell", "bash", "zsh", "fish", "pty", "tty",
	// commands
	"chmod", "chown", "sudo", "permissions", "grep", "sed", "awk",
	// status
	"how are you", "status", "health", "working",
}

var (
	classifySystemKeywords = []string{
		"systemd", "systemctl", "pacman", "aur", "kernel", "boot", "partition",
		"mount", "filesystem", "disk", "chmod", "chown", "sudo", "service",
	}
	codingKeywords = []string{
		"code", "function", "rust", "python", "javascript", "typescript", "java", "c++",
		"debug", "error", "fix", "implement", "algorithm", "design pattern", "refactor",
		"write", "create", "build", "compile", "cargo", "npm", "pip", "package.json",
		"test", "unit test", "integration", "mock", "struct", "trait", "enum",
		"async", "await", "thread", "concurrency", "performance", "optimization",
		"pkgbuild", "makefile", "build script", "dependency", "library",
	}
	complexKeywords = []string{
		"architecture", "design", "strategy", "approach", "explain", "how does",
		"why", "compare", "trade-off", "best practice", "pattern", "guide",
		"tutorial", "learn", "understand", "concept", "theory",
	}
	quickKeywords = []string{
		"what is", "what are", "how to", "install", "command", "syntax",
		"example", "usage", "manual", "docs", "help", "where", "when",
	}
)

// IsCommand reports whether text should run in the terminal: a leading "!",
// a known shell verb as the first token, or a shell operator anywhere.
func IsCommand(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "!") {
		return true
	}
	if commandVerbs[strings.Fields(s)[0]] {
		return true
	}
	for _, op := range commandOperators {
		if strings.Contains(s, op) {
			return true
		}
	}
	return false
}

// IsSystemQuery reports whether text is about the local system. Such
// prompts always go to the local provider.
func IsSystemQuery(text string) bool {
	return containsAny(strings.ToLower(text), systemQueryKeywords)
}

// Classify maps text to a Category. Keyword groups are checked in the fixed
// order System, Coding, Complex, Quick; the first match wins. Without a
// keyword match the length decides.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	n := utf8.RuneCountInString(lower)

	switch {
	case containsAny(lower, classifySystemKeywords):
		return System
	case containsAny(lower, codingKeywords):
		return Coding
	case containsAny(lower, complexKeywords) && n > 30:
		return Complex
	case containsAny(lower, quickKeywords) && n < 50:
		return Quick
	case n < 30:
		return Quick
	case n > 200:
		return Complex
	default:
		return Coding
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
