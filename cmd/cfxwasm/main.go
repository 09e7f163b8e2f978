// Command cfxwasm hosts one or more guest modules in a single process,
// ticking their schedulers and routing events between them.
package main

func main() {
	Execute()
}
