// Command marketc is the administrative CLI for the marketplace daemon,
// modeled on cmd/siac: a cobra root command with one subcommand per
// ledger/wallet/transfer operation, talking to the ledger RPC surface over
// HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daminals/orcanet-go/build"
	"github.com/daminals/orcanet-go/fileinfo"
	"github.com/daminals/orcanet-go/ledger"
	"github.com/daminals/orcanet-go/market"
	"github.com/daminals/orcanet-go/marketplace"
	"github.com/daminals/orcanet-go/transfer"
	"github.com/daminals/orcanet-go/wallet"
)

// Exit codes, inspired by sysexits.h, matching cmd/siac's convention.
const (
	exitCodeGeneral = 1
	exitCodeUsage   = 64
)

var (
	ledgerAddr string
	marketAddr string
	walletPath string
)

func main() {
	root := &cobra.Command{
		Use:     "marketc",
		Short:   "marketc is the administrative CLI for marketd",
		Version: build.Version,
	}
	root.PersistentFlags().StringVar(&ledgerAddr, "ledger-addr", "http://127.0.0.1:9980", "ledger RPC address")
	root.PersistentFlags().StringVar(&marketAddr, "market-addr", "http://127.0.0.1:8080", "market facade RPC address")
	root.PersistentFlags().StringVar(&walletPath, "wallet", "marketd.key", "path to this wallet's PKCS#8 key file")

	root.AddCommand(walletCmd())
	root.AddCommand(invoiceCmd())
	root.AddCommand(downloadCmd())
	root.AddCommand(registerCmd())
	root.AddCommand(checkHoldersCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeGeneral)
	}
}

func loadWallet() (*wallet.Wallet, error) {
	client := ledger.NewClient(ledgerAddr)
	return wallet.LoadOrGenerate(client, walletPath)
}

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "wallet", Short: "wallet operations"}

	address := &cobra.Command{
		Use:   "address",
		Short: "print this wallet's address",
		Run: func(cmd *cobra.Command, args []string) {
			w, err := loadWallet()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fmt.Println(w.Address())
		},
	}

	balance := &cobra.Command{
		Use:   "balance",
		Short: "print this wallet's ledger balance",
		Run: func(cmd *cobra.Command, args []string) {
			w, err := loadWallet()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			balance, err := w.GetBalance()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fmt.Printf("%.2f\n", balance)
		},
	}

	cmd.AddCommand(address, balance)
	return cmd
}

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "invoice", Short: "invoice operations"}

	create := &cobra.Command{
		Use:   "create [amount]",
		Short: "create an invoice payable to this wallet",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var amount float64
			if _, err := fmt.Sscanf(args[0], "%f", &amount); err != nil {
				fmt.Fprintln(os.Stderr, "invalid amount:", args[0])
				os.Exit(exitCodeUsage)
			}
			w, err := loadWallet()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			id, err := w.CreateInvoice(amount)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fmt.Println(id)
		},
	}

	pay := &cobra.Command{
		Use:   "pay [invoice-id] [amount?]",
		Short: "pay an invoice, in full or by a specified amount",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			w, err := loadWallet()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			var amountPtr *float64
			if len(args) == 2 {
				var amount float64
				if _, err := fmt.Sscanf(args[1], "%f", &amount); err != nil {
					fmt.Fprintln(os.Stderr, "invalid amount:", args[1])
					os.Exit(exitCodeUsage)
				}
				amountPtr = &amount
			}
			if err := w.PayInvoice(args[0], amountPtr); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fmt.Println("paid")
		},
	}

	check := &cobra.Command{
		Use:   "check [invoice-id]",
		Short: "print the current state of an invoice",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			w, err := loadWallet()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			snap, err := w.CheckInvoice(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fmt.Printf("amount=%.2f amount_paid=%.2f paid=%v\n", snap.Amount, snap.AmountPaid, snap.Paid)
		},
	}

	cmd.AddCommand(create, pay, check)
	return cmd
}

func downloadCmd() *cobra.Command {
	var supplierURL, fileHash, dest string
	var pricePerChunk float64

	cmd := &cobra.Command{
		Use:   "download",
		Short: "download a file from a supplier, auto-paying per chunk",
		Run: func(cmd *cobra.Command, args []string) {
			w, err := loadWallet()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			consumer := transfer.NewConsumer(supplierURL, fileHash, pricePerChunk, w)
			if err := consumer.DownloadAll(dest); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fmt.Println("download complete:", dest)
		},
	}
	cmd.Flags().StringVar(&supplierURL, "supplier", "", "supplier base URL, e.g. http://host:port")
	cmd.Flags().StringVar(&fileHash, "file-hash", "", "FileInfoHash of the file to download")
	cmd.Flags().StringVar(&dest, "out", "download.bin", "destination path")
	cmd.Flags().Float64Var(&pricePerChunk, "price-per-chunk", 0, "price charged per chunk, in ledger units")
	_ = cmd.MarkFlagRequired("supplier")
	_ = cmd.MarkFlagRequired("file-hash")

	return cmd
}

func registerCmd() *cobra.Command {
	var path string
	var pricePerMB int64
	var port int

	cmd := &cobra.Command{
		Use:   "register",
		Short: "hash a local file and advertise it in the DHT as held by this wallet",
		Run: func(cmd *cobra.Command, args []string) {
			w, err := loadWallet()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fi, err := fileinfo.BuildFileInfo(path, transfer.DefaultChunkSize)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			supplier := marketplace.Supplier{ID: w.Address(), Name: w.Address(), Port: port, Price: pricePerMB}
			client := market.NewClient(marketAddr)
			hash, err := client.RegisterFile(supplier, fi, 0)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			fmt.Println(hash)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "path to the file to register")
	cmd.Flags().Int64Var(&pricePerMB, "price-per-mb", 0, "price charged per MB, in ledger units")
	cmd.Flags().IntVar(&port, "port", 0, "port this wallet's chunk server is reachable on")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func checkHoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-holders [file-info-hash]",
		Short: "print the suppliers currently advertising a file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := market.NewClient(marketAddr)
			resp, err := client.CheckHolders(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeGeneral)
			}
			if len(resp.Holders) == 0 {
				fmt.Println("no holders")
				return
			}
			for _, h := range resp.Holders {
				fmt.Printf("%s\t%s:%d\tprice=%d\n", h.ID, h.IP, h.Port, h.Price)
			}
		},
	}
	return cmd
}
