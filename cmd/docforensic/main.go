// Command docforensic analyzes untrusted documents for signs of fraud.
package main

import "github.com/docforensic/docforensic/cmd"

func main() {
	cmd.Execute()
}
