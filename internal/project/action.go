package project

import "github.com/crimson-sun/rcwatch/internal/synth"

// Action names one synthesized log pattern in a project's bundle.
type Action string

const (
	Restore         Action = "restore"
	Delete          Action = "delete"
	Protect         Action = "protect"
	Unprotect       Action = "unprotect"
	ModifyProtect   Action = "modifyprotect"
	Upload          Action = "upload"
	Move            Action = "move"
	MoveRedirect    Action = "moveredir"
	Block           Action = "block"
	Unblock         Action = "unblock"
	Reblock         Action = "reblock"
	AutosummBlank   Action = "autosummblank"
	AutosummReplace Action = "autosummreplace"
)

// message describes the interface message an action is synthesized from.
type message struct {
	action Action
	title  string
	req    synth.Requirement
	// optional messages are missing on older wikis and get a fallback.
	optional bool
}

// messages lists every action in synthesis order. ModifyProtect must come
// after Protect, which it falls back to.
var messages = []message{
	{action: Restore, title: "MediaWiki:Undeletedarticle", req: synth.Requirement{Captures: 1}},
	{action: Delete, title: "MediaWiki:Deletedarticle", req: synth.Requirement{Captures: 1}},
	{action: Protect, title: "MediaWiki:Protectedarticle", req: synth.Requirement{Captures: 1}},
	{action: Unprotect, title: "MediaWiki:Unprotectedarticle", req: synth.Requirement{Captures: 1}},
	{action: ModifyProtect, title: "MediaWiki:Modifiedarticleprotection", req: synth.Requirement{Captures: 1, Lenient: true}, optional: true},
	{action: Upload, title: "MediaWiki:Uploadedimage"},
	{action: Move, title: "MediaWiki:1movedto2", req: synth.Requirement{Captures: 2}},
	{action: MoveRedirect, title: "MediaWiki:1movedto2_redir", req: synth.Requirement{Captures: 2}},
	// Some wikis override the block message without $2 (the duration), so
	// it is lenient and the classifier falls back to a default duration.
	{action: Block, title: "MediaWiki:Blocklogentry", req: synth.Requirement{Captures: 3, Lenient: true, BlockLog: true}},
	{action: Unblock, title: "MediaWiki:Unblocklogentry"},
	// The feed renders reblocks like blocks, flags in parentheses.
	{action: Reblock, title: "MediaWiki:Reblock-logentry", req: synth.Requirement{Captures: 3, BlockLog: true}, optional: true},
	{action: AutosummBlank, title: "MediaWiki:Autosumm-blank"},
	// Some large wikis leave the replaced text out of this message.
	{action: AutosummReplace, title: "MediaWiki:Autosumm-replace", req: synth.Requirement{Captures: 1, Lenient: true}},
}

func init() {
	for i := range messages {
		messages[i].req.Message = messages[i].title
	}
}

// Actions returns every action in synthesis order.
func Actions() []Action {
	out := make([]Action, len(messages))
	for i, m := range messages {
		out[i] = m.action
	}
	return out
}

// MessageTitle returns the interface message an action is synthesized from.
func MessageTitle(a Action) string {
	for _, m := range messages {
		if m.action == a {
			return m.title
		}
	}
	return ""
}

// DefaultProtectOrder is the order protect log entries are tried in. Some
// wikis' modify-protection message is a textual superset of the protect
// message, so protect goes first.
var DefaultProtectOrder = []Action{Protect, ModifyProtect, Unprotect}

func validProtectOrder(order []Action) bool {
	if len(order) != len(DefaultProtectOrder) {
		return false
	}
	seen := make(map[Action]bool, len(order))
	for _, a := range order {
		switch a {
		case Protect, ModifyProtect, Unprotect:
		default:
			return false
		}
		if seen[a] {
			return false
		}
		seen[a] = true
	}
	return true
}
