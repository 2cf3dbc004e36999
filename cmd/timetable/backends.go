package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rohit-sws/timetable/internal/output"
	"github.com/rohit-sws/timetable/internal/textextract"
)

type backendInfo struct {
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`
	Default  bool   `json:"default" yaml:"default"`
	Images   bool   `json:"images" yaml:"images"`
	PDF      bool   `json:"pdf" yaml:"pdf"`
}

type backendList []backendInfo

func (l backendList) Table() output.Table {
	t := output.Table{Headers: []string{"NAME", "PROVIDER", "DEFAULT", "IMAGES", "PDF"}}
	for _, b := range l {
		t.Rows = append(t.Rows, []string{
			b.Name, b.Provider,
			strconv.FormatBool(b.Default), strconv.FormatBool(b.Images), strconv.FormatBool(b.PDF),
		})
	}
	return t
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List usable backends",
	Long: `List backends that are enabled and have an API key, with the document
types each can read inline. Others are converted to text first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := services(cmd)
		def := s.Config.Get().Defaults.Backend

		var list backendList
		for _, name := range s.Registry.Names() {
			b, err := s.Registry.Get(name)
			if err != nil {
				continue
			}
			list = append(list, backendInfo{
				Name:     name,
				Provider: b.Name(),
				Default:  name == def,
				Images:   b.Accepts("image/png"),
				PDF:      b.Accepts(textextract.MimePDF),
			})
		}
		return emit(cmd, list)
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
