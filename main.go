// FeliCa Ledger decodes PASMO/Suica card history into ledgers.
//
// See cmd/root.go for the command tree.
package main

import (
	"github.com/ginjaninja78/felica-ledger/cmd"
)

func main() {
	cmd.Execute()
}
