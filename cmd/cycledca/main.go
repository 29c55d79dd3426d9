// Command cycledca maintains a reconciled BTC daily price history and runs
// cycle-aware DCA simulations over it.
package main

func main() {
	execute()
}
