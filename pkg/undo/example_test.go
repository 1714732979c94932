package undo_test

import (
	"fmt"

	"github.com/Hopsan/hopsan-sub008/pkg/adapters/memory"
	"github.com/Hopsan/hopsan-sub008/pkg/domain"
	"github.com/Hopsan/hopsan-sub008/pkg/undo"
)

func ExampleStack() {
	doc := memory.NewDocument()
	stack := undo.NewStack(doc)

	stack.BeginTransaction("Add pump")
	snap, _ := doc.AddEntity(memory.Entity{Name: "Pump1", Type: "HydraulicPump"})
	stack.RegisterAddedEntity("Pump1", snap)

	stack.BeginTransaction("")
	from := domain.Position{X: 0, Y: 0}
	to := domain.Position{X: 40, Y: 10}
	_ = doc.SetPosition("Pump1", to)
	stack.RegisterMove("Pump1", from, to)
	_ = doc.RenameEntity("Pump1", "MainPump")
	stack.RegisterRename("Pump1", "MainPump")

	for _, e := range stack.Entries() {
		fmt.Printf("#%d %s\n", e.Number, e.Title())
	}

	_ = stack.Undo()
	pump, _ := doc.Entity("Pump1")
	fmt.Println(doc.Entities(), pump.Position, stack.CanRedo())

	_ = stack.Undo()
	fmt.Println(doc.Entities(), stack.CanUndo())

	_ = stack.Redo()
	_ = stack.Redo()
	fmt.Println(doc.Entities())

	// Output:
	// #0 Add pump
	// #1 multiple changes
	// [Pump1] {0 0} true
	// [] false
	// [MainPump]
}
