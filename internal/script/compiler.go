package script

import (
	"context"
	"fmt"

	"github.com/gamekit-labs/ccbuild/internal/stage"
	"github.com/gamekit-labs/ccbuild/internal/toolchain"
)

// Compiler drives the engine console's luacompile and jscompile commands.
type Compiler struct {
	Runner toolchain.Runner
	Tool   string // engine console executable, e.g. "cocos"

	Compile    bool // compile to bytecode
	LuaEncrypt bool
	LuaKey     string
	LuaSign    string
}

// LuaEnabled reports whether lua sources are transformed at all.
func (c *Compiler) LuaEnabled() bool { return c.Compile || c.LuaEncrypt }

// LuaCommand builds the luacompile invocation.
func (c *Compiler) LuaCommand(src, dst string, bytecode64 bool) toolchain.Command {
	args := []string{"luacompile", "-s", src, "-d", dst}
	if !c.Compile {
		args = append(args, "--disable-compile")
	} else if bytecode64 {
		args = append(args, "--bytecode-64bit")
	}
	if c.LuaEncrypt {
		args = append(args, "-e")
		if c.LuaKey != "" {
			args = append(args, "-k", c.LuaKey)
		}
		if c.LuaSign != "" {
			args = append(args, "-b", c.LuaSign)
		}
	}
	return toolchain.Command{Name: c.Tool, Args: args}
}

// JSCommand builds the jscompile invocation.
func (c *Compiler) JSCommand(src, dst string) toolchain.Command {
	return toolchain.Command{Name: c.Tool, Args: []string{"jscompile", "-s", src, "-d", dst}}
}

// Lua compiles src into dst and deletes the .lua sources from dst. It
// returns false without running anything when neither compilation nor
// encryption is requested.
func (c *Compiler) Lua(ctx context.Context, src, dst string, bytecode64 bool) (bool, error) {
	if !c.LuaEnabled() {
		return false, nil
	}
	if err := c.Runner.Run(ctx, c.LuaCommand(src, dst, bytecode64)); err != nil {
		return false, fmt.Errorf("compiling lua scripts in %s: %w", src, err)
	}
	if err := stage.RemoveTreeFilesWithExt(dst, ".lua"); err != nil {
		return true, fmt.Errorf("removing lua sources from %s: %w", dst, err)
	}
	return true, nil
}

// JS compiles src into dst and deletes the .js sources from dst.
func (c *Compiler) JS(ctx context.Context, src, dst string) (bool, error) {
	if !c.Compile {
		return false, nil
	}
	if err := c.Runner.Run(ctx, c.JSCommand(src, dst)); err != nil {
		return false, fmt.Errorf("compiling js scripts in %s: %w", src, err)
	}
	if err := stage.RemoveTreeFilesWithExt(dst, ".js"); err != nil {
		return true, fmt.Errorf("removing js sources from %s: %w", dst, err)
	}
	return true, nil
}
