// Command library runs the library loan service and its admin tasks.
package main

var version = "dev"

func main() {
	Execute(version)
}
