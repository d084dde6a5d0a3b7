package main

import (
	"fmt"
	"io"
	"os"

	"github.com/etree-go/etree"
	flags "github.com/jessevdk/go-flags"
	isatty "github.com/mattn/go-isatty"
)

type options struct {
	Events    bool   `short:"e" long:"events" description:"print parse events as they are recorded"`
	Positions bool   `short:"p" long:"positions" description:"print source positions with each element"`
	Encoding  string `long:"encoding" description:"override the document encoding"`
	ChunkSize int    `short:"c" long:"chunk-size" default:"4096" description:"feed the parser this many bytes at a time"`
	Version   bool   `long:"version" description:"print the version and exit"`
}

func main() {
	if err := _main(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func _main() error {
	var opts options
	args, err := flags.Parse(&opts)
	if err != nil {
		return err
	}

	if opts.Version {
		fmt.Printf("etree-lint %s\n", etree.Version)
		return nil
	}

	if len(args) == 0 {
		if isatty.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("no input: give a file argument or pipe a document to stdin")
		}
		return lint(os.Stdin, "<stdin>", &opts)
	}

	for _, name := range args {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		err = lint(f, name, &opts)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func lint(in io.Reader, name string, opts *options) error {
	var popts []etree.ParserOption
	if opts.Encoding != "" {
		popts = append(popts, etree.WithParserEncoding(opts.Encoding))
	}
	p, err := etree.NewXMLParser(popts...)
	if err != nil {
		return err
	}

	var queue *etree.EventQueue
	if opts.Events {
		queue = etree.NewEventQueue()
		if err := p.SetEvents(queue, "start", "end", "start-ns", "end-ns"); err != nil {
			return err
		}
	}

	buf := make([]byte, opts.ChunkSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if err := p.Feed(buf[:n]); err != nil {
				return fmt.Errorf("%s: %s", name, err)
			}
			drain(queue, opts)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	result, err := p.Close()
	if err != nil {
		return fmt.Errorf("%s: %s", name, err)
	}
	drain(queue, opts)

	root, ok := result.(*etree.Element)
	if !ok || root == nil {
		fmt.Printf("%s: empty document\n", name)
		return nil
	}

	count := 0
	for range root.Iter("") {
		count++
	}
	fmt.Printf("%s: well-formed, root <%s>, %d element(s)\n", name, root.Tag(), count)
	return nil
}

func drain(queue *etree.EventQueue, opts *options) {
	if queue == nil {
		return
	}
	for {
		ev, ok := queue.Pop()
		if !ok {
			return
		}
		switch ev.Kind {
		case etree.StartEvent, etree.EndEvent:
			if opts.Positions {
				pos := ev.Elem.Start()
				if ev.Kind == etree.EndEvent {
					pos = ev.Elem.End()
				}
				if pos != nil {
					fmt.Printf("%-8s %s (line %d, column %d)\n", ev.Kind, ev.Elem.Tag(), pos.Line, pos.Column)
					continue
				}
			}
			fmt.Printf("%-8s %s\n", ev.Kind, ev.Elem.Tag())
		case etree.StartNSEvent:
			fmt.Printf("%-8s %q -> %q\n", ev.Kind, ev.Prefix, ev.URI)
		case etree.EndNSEvent:
			fmt.Printf("%-8s %q\n", ev.Kind, ev.Prefix)
		}
	}
}
