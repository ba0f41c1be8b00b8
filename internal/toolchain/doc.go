// Package toolchain runs and discovers the native tools a build drives:
// a subprocess runner, required environment variables, Xcode, the JDK,
// Visual Studio (through the Windows registry) and the host CPU count.
package toolchain
