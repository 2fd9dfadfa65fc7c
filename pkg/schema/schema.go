// Package schema wraps the YANG modules advertised by the daemon into an
// explicit, read-only schema context shared by the command tree builder and
// the configuration session.
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/openconfig/goyang/pkg/yang"
)

// DefaultModulesDir is where YANG modules are searched for by default.
const DefaultModulesDir = "/usr/local/share/holo-cli/modules"

// ModuleInfo describes one loaded module.
type ModuleInfo struct {
	Name      string
	Revision  string
	Namespace string
	Prefix    string
}

// RPC is an operation defined by a loaded module.
type RPC struct {
	Module string
	Name   string
	Desc   string
}

// Context holds the loaded YANG modules. It is built once (LoadModule /
// ParseModule followed by Finalize) and treated as read-only afterwards.
type Context struct {
	modules  *yang.Modules
	names    []string
	roots    []Node
	rootIdx  map[string]Node
	rpcs     []RPC
	info     []ModuleInfo
	finished bool
}

// NewContext creates an empty schema context that looks for modules in
// the given directories.
func NewContext(dirs ...string) *Context {
	ms := yang.NewModules()
	ms.AddPath(dirs...)
	return &Context{
		modules: ms,
		rootIdx: make(map[string]Node),
	}
}

// LoadModule reads a module (and its imports) from the search directories.
func (c *Context) LoadModule(name string) error {
	if c.finished {
		return fmt.Errorf("schema context already finalized")
	}
	if err := c.modules.Read(name); err != nil {
		return fmt.Errorf("load module %s: %w", name, err)
	}
	c.names = append(c.names, name)
	return nil
}

// ParseModule adds a module from its source text.
func (c *Context) ParseModule(name, source string) error {
	if c.finished {
		return fmt.Errorf("schema context already finalized")
	}
	if err := c.modules.Parse(source, name); err != nil {
		return fmt.Errorf("parse module %s: %w", name, err)
	}
	c.names = append(c.names, name)
	return nil
}

// Finalize resolves all loaded modules and builds the data node index.
// Modules that fail to resolve are skipped; their errors are returned
// joined so the caller can report them without aborting.
func (c *Context) Finalize() error {
	if c.finished {
		return nil
	}
	c.finished = true

	var errs []error
	for _, err := range c.modules.Process() {
		errs = append(errs, err)
	}

	seen := make(map[string]bool)
	for _, name := range c.names {
		if seen[name] {
			continue
		}
		seen[name] = true

		mod, ok := c.modules.Modules[name]
		if !ok {
			errs = append(errs, fmt.Errorf("module %s: not found after processing", name))
			continue
		}
		entry := yang.ToEntry(mod)
		if entryErrs := entry.GetErrors(); len(entryErrs) > 0 {
			for _, err := range entryErrs {
				errs = append(errs, fmt.Errorf("module %s: %w", name, err))
			}
			continue
		}

		info := ModuleInfo{Name: mod.Name}
		if mod.Namespace != nil {
			info.Namespace = mod.Namespace.Name
		}
		if mod.Prefix != nil {
			info.Prefix = mod.Prefix.Name
		}
		if len(mod.Revision) > 0 {
			info.Revision = mod.Revision[0].Name
		}
		c.info = append(c.info, info)

		c.collect(mod.Name, entry)
	}

	sort.Slice(c.roots, func(i, j int) bool { return c.roots[i].Name() < c.roots[j].Name() })
	sort.Slice(c.rpcs, func(i, j int) bool { return c.rpcs[i].Name < c.rpcs[j].Name })
	sort.Slice(c.info, func(i, j int) bool { return c.info[i].Name < c.info[j].Name })

	slog.Debug("schema context finalized",
		"modules", len(c.info), "roots", len(c.roots), "rpcs", len(c.rpcs), "errors", len(errs))
	return errors.Join(errs...)
}

func (c *Context) collect(module string, entry *yang.Entry) {
	for name, e := range entry.Dir {
		if e.RPC != nil {
			c.rpcs = append(c.rpcs, RPC{Module: module, Name: name, Desc: e.Description})
		}
	}
	all := make(map[string]*yang.Entry)
	flatten(entry, all)
	for name, e := range all {
		if _, dup := c.rootIdx[name]; dup {
			slog.Warn("duplicate top-level schema node ignored", "name", name, "module", module)
			continue
		}
		n := Node{e: e}
		c.rootIdx[name] = n
		c.roots = append(c.roots, n)
	}
}

// Roots returns the top-level data nodes of all loaded modules.
func (c *Context) Roots() []Node { return c.roots }

// Root returns the top-level data node with the given name. A module
// prefix ("ietf-interfaces:interfaces") is accepted and ignored.
func (c *Context) Root(name string) (Node, bool) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[i+1:]
	}
	n, ok := c.rootIdx[name]
	return n, ok
}

// Lookup resolves a schema path such as "/interfaces/interface/mtu".
// List predicates ("interface[name=eth0]") and module prefixes are ignored.
func (c *Context) Lookup(path string) (Node, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return Node{}, false
	}
	n, ok := c.Root(parts[0])
	if !ok {
		return Node{}, false
	}
	for _, p := range parts[1:] {
		if i := strings.IndexByte(p, ':'); i >= 0 {
			p = p[i+1:]
		}
		if n, ok = n.Child(p); !ok {
			return Node{}, false
		}
	}
	return n, true
}

// RPCs returns the operations defined by the loaded modules.
func (c *Context) RPCs() []RPC { return c.rpcs }

// Modules returns information about every successfully loaded module.
func (c *Context) Modules() []ModuleInfo { return c.info }

// splitPath splits an XPath-like path into element names, dropping list
// predicates.
func splitPath(path string) []string {
	var parts []string
	var b strings.Builder
	depth := 0
	for _, r := range path {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth > 0:
		case r == '/':
			if b.Len() > 0 {
				parts = append(parts, b.String())
				b.Reset()
			}
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}
