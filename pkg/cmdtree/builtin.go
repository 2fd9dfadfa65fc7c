package cmdtree

// Callback identifiers of the built-in commands. The dispatcher registers
// one handler per identifier.
const (
	CbConfigure         CallbackID = "configure"
	CbExitCLI           CallbackID = "exit-cli"
	CbShowRunning       CallbackID = "show-running"
	CbShowState         CallbackID = "show-state"
	CbShowYangModules   CallbackID = "show-yang-modules"
	CbShowCommitHistory CallbackID = "show-commit-history"
	CbShowStatistics    CallbackID = "show-cli-statistics"
	CbRequest           CallbackID = "request"
	CbReloadSchema      CallbackID = "reload-schema"

	CbExit          CallbackID = "exit"
	CbEnd           CallbackID = "end"
	CbTop           CallbackID = "top"
	CbPwd           CallbackID = "pwd"
	CbCommit        CallbackID = "commit"
	CbDiscard       CallbackID = "discard"
	CbValidate      CallbackID = "validate"
	CbRollback      CallbackID = "rollback"
	CbLoad          CallbackID = "load"
	CbShowCandidate CallbackID = "show-candidate"
	CbShowChanges   CallbackID = "show-changes"
	CbRun           CallbackID = "run"
)

// Command is the literal form of a built-in command subtree. Keys of
// Children are keywords, or "<name>" for the single parameter child.
type Command struct {
	Desc     string
	Callback CallbackID
	Param    *Param
	Children map[string]*Command
}

// Formats accepted by the "format" option of the show commands.
var Formats = []string{"cmds", "json", "text", "yaml"}

func formatOption(cb CallbackID) map[string]*Command {
	return map[string]*Command{
		"format": {Desc: "Output format", Children: map[string]*Command{
			"<format>": {Desc: "Output format", Callback: cb, Param: &Param{Name: "format", Type: ParamEnum, Values: Formats}},
		}},
	}
}

// OperationalCommands are available at the operational prompt.
func OperationalCommands() map[string]*Command {
	return map[string]*Command{
		"configure": {Desc: "Enter configuration mode", Callback: CbConfigure},
		"show": {Desc: "Show information", Children: map[string]*Command{
			"running": {Desc: "Show running configuration", Callback: CbShowRunning, Children: formatOption(CbShowRunning)},
			"state": {Desc: "Show operational state", Children: map[string]*Command{
				"<path>": {Desc: "Data path, e.g. /interfaces", Callback: CbShowState, Param: &Param{Name: "path", Type: ParamString}},
			}},
			"yang": {Desc: "Show YANG information", Children: map[string]*Command{
				"modules": {Desc: "Show loaded YANG modules", Callback: CbShowYangModules},
			}},
			"commit": {Desc: "Show commit information", Children: map[string]*Command{
				"history": {Desc: "Show configurations committed in this session", Callback: CbShowCommitHistory},
			}},
			"cli": {Desc: "Show CLI information", Children: map[string]*Command{
				"statistics": {Desc: "Show command and commit counters", Callback: CbShowStatistics},
			}},
		}},
		"reload": {Desc: "Reload data", Children: map[string]*Command{
			"schema": {Desc: "Reload YANG modules and rebuild the command tree", Callback: CbReloadSchema},
		}},
		"exit": {Desc: "Exit CLI", Callback: CbExitCLI},
		"quit": {Desc: "Exit CLI", Callback: CbExitCLI},
	}
}

// requestCommand builds "request <rpc> [input <json>]" for the given
// operation names.
func requestCommand(rpcs []string) *Command {
	return &Command{Desc: "Invoke an operation", Children: map[string]*Command{
		"<rpc>": {Desc: "Operation name", Callback: CbRequest,
			Param: &Param{Name: "rpc", Type: ParamEnum, Values: rpcs},
			Children: map[string]*Command{
				"input": {Desc: "Operation input as JSON", Children: map[string]*Command{
					"<json>": {Desc: "JSON_IETF encoded input", Callback: CbRequest, Param: &Param{Name: "json", Type: ParamRest}},
				}},
			}},
	}}
}

// ConfigCommands are available at every level of configuration mode.
func ConfigCommands() map[string]*Command {
	return map[string]*Command{
		"exit": {Desc: "Exit one level of configuration hierarchy", Callback: CbExit},
		"end":  {Desc: "Exit configuration mode", Callback: CbEnd},
		"top":  {Desc: "Exit to top of configuration hierarchy", Callback: CbTop},
		"pwd":  {Desc: "Show current configuration hierarchy", Callback: CbPwd},
		"commit": {Desc: "Commit configuration", Callback: CbCommit, Children: map[string]*Command{
			"comment": {Desc: "Add comment to commit", Children: map[string]*Command{
				"<comment>": {Desc: "Commit comment", Callback: CbCommit, Param: &Param{Name: "comment", Type: ParamRest}},
			}},
		}},
		"discard":  {Desc: "Discard uncommitted changes", Callback: CbDiscard},
		"validate": {Desc: "Validate candidate configuration", Callback: CbValidate},
		"rollback": {Desc: "Revert candidate to a previous configuration", Children: map[string]*Command{
			"<number>": {Desc: "0 is the running configuration, 1 the previous commit", Callback: CbRollback,
				Param: &Param{Name: "number", Type: ParamNumber, HasRange: true, Min: 0, Max: 49}},
		}},
		"load": {Desc: "Merge configuration text from a file into the candidate", Children: map[string]*Command{
			"<file>": {Desc: "File name", Callback: CbLoad, Param: &Param{Name: "file", Type: ParamString}},
		}},
		"show": {Desc: "Show configuration", Children: map[string]*Command{
			"candidate": {Desc: "Show candidate configuration", Callback: CbShowCandidate, Children: formatOption(CbShowCandidate)},
			"running":   {Desc: "Show running configuration", Callback: CbShowRunning, Children: formatOption(CbShowRunning)},
			"changes":   {Desc: "Show uncommitted changes", Callback: CbShowChanges},
		}},
		"run": {Desc: "Run operational command", Children: map[string]*Command{
			"<command>": {Desc: "Operational command", Callback: CbRun, Param: &Param{Name: "command", Type: ParamRest}},
		}},
	}
}

// CallbackIDs returns every callback referenced by the built-in commands.
func CallbackIDs() []CallbackID {
	return []CallbackID{
		CbConfigure, CbExitCLI, CbShowRunning, CbShowState, CbShowYangModules,
		CbShowCommitHistory, CbShowStatistics, CbRequest, CbReloadSchema,
		CbExit, CbEnd, CbTop, CbPwd, CbCommit, CbDiscard, CbValidate,
		CbRollback, CbLoad, CbShowCandidate, CbShowChanges, CbRun,
	}
}
