package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/wasmutil/refrun/code"
	"github.com/wasmutil/refrun/exec"
	"github.com/wasmutil/refrun/interp"
	"github.com/wasmutil/refrun/ref"
	"github.com/wasmutil/refrun/utils"
)

func main() {
	var rootCmd *cobra.Command
	rootCmd = &cobra.Command{
		Use: "refrun <file>",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				rootCmd.Usage()
				os.Exit(1)
			}
			filename := args[0]

			var in io.Reader
			if filename == "-" {
				in = os.Stdin
			} else {
				var err error
				in, err = os.Open(filename)
				if err != nil {
					err := err.(*os.PathError)
					exitWithError("could not open file %s: %v", err.Path, err.Err)
				}
			}

			instrs, err := code.Decode(in)
			if err != nil {
				exitWithError("%v", err)
			}

			if utils.Must1(rootCmd.PersistentFlags().GetBool("dump")) {
				for pc, ins := range instrs {
					fmt.Printf("%4d: %s\n", pc, ins)
				}
				return
			}

			tableLen := utils.Must1(rootCmd.PersistentFlags().GetInt("table"))
			x := exec.New(exec.NewTable(tableLen, ref.AnyRef))
			result, err := interp.Run(instrs, x)
			if err != nil {
				exitWithError("%v", err)
			}
			for _, s := range result {
				fmt.Println(s)
			}
		},
	}
	rootCmd.PersistentFlags().BoolP("dump", "d", false, "Disassemble the instruction stream instead of running it.")
	rootCmd.PersistentFlags().IntP("table", "t", 128, "The length of the table the program runs against.")
	utils.Must(rootCmd.Execute())
}

func exitWithError(msg string, args ...any) {
	msg = fmt.Sprintf(msg, args...)
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	os.Exit(1)
}
