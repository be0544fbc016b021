// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	ConfigLoadFailedId Id = iota + 1
	TypingsDataNotFoundId
	RegistryFetchFailedId
	GenerationMismatchId
	OutputWriteFailedId
	PublishFailedId
	InstallFailedId
	ValidationMismatchId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a Markdown remediation guide for one class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the guide with the given glamour style ("auto", "dark",
// "light", "notty" or a path to a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ typesreg config show
~~~
- Write a fresh default file and edit it:
~~~
$ typesreg config init
~~~
- Pass a file explicitly with ` + "`--config path/to/config.cue`",
	}

	typingsDataNotFoundIssue = &Issue{
		id: TypingsDataNotFoundId,
		mdMsg: `
# Typings data not found!

The registry is built from ` + "`definitions.json`" + ` in the configured data directory,
and that file is missing or unreadable.

## Things you can try:
- Run the step that parses the definitions repository first
- Point ` + "`paths.data_dir`" + ` at the directory holding ` + "`definitions.json`",
	}

	registryFetchFailedIssue = &Issue{
		id: RegistryFetchFailedId,
		mdMsg: `
# Could not read the published types-registry!

The run needs the latest published version and its content hash before it
can decide whether to publish.

## Things you can try:
- Check that ` + "`registry.url`" + ` is reachable
- If the registry needs authentication, export the token named by ` + "`registry.token_env`" + `
- Retry; nothing was written or published`,
		docLinks: []HttpLink{"https://github.com/npm/registry/blob/main/docs/REGISTRY-API.md"},
	}

	generationMismatchIssue = &Issue{
		id: GenerationMismatchId,
		mdMsg: `
# Unexpected types-registry version!

The latest published version is not a 0.1.x release. This tool only
publishes patch releases on top of 0.1.x, so it stopped before writing
anything.

## Things you can try:
- Check which version carries the ` + "`latest`" + ` dist-tag:
~~~
$ npm view types-registry dist-tags
~~~
- If a release was tagged by mistake, move ` + "`latest`" + ` back to the last 0.1.x version`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Failed to write the registry output!

The output directory is cleared and rewritten on every run.

## Things you can try:
- Check permissions on ` + "`paths.output_dir`" + ` and ` + "`paths.log_dir`" + `
- Make sure no other process holds files open in those directories`,
	}

	publishFailedIssue = &Issue{
		id: PublishFailedId,
		mdMsg: `
# Failed to publish types-registry!

` + "`npm publish`" + ` or ` + "`npm dist-tag`" + ` exited with an error.

## Things you can try:
- Check that you are logged in with publish rights:
~~~
$ npm whoami
~~~
- Rehearse the run without touching the registry:
~~~
$ typesreg --dry
~~~
- If the version was published under ` + "`next`" + ` but never promoted, validate and tag it by hand`,
		docLinks: []HttpLink{"https://docs.npmjs.com/cli/commands/npm-dist-tag"},
	}

	installFailedIssue = &Issue{
		id: InstallFailedId,
		mdMsg: `
# Failed to install types-registry for validation!

The validator installs the published package into a scratch directory.

## Things you can try:
- Check that ` + "`npm.binary`" + ` points to a working npm
- Check the installer flags in ` + "`npm.install_flags`" + `
- Re-run just the validation:
~~~
$ typesreg validate
~~~`,
	}

	validationMismatchIssue = &Issue{
		id: ValidationMismatchId,
		mdMsg: `
# The published types-registry does not match local output!

The installed package differs from the files generated by this run
(package.json excluded).

## Things you can try:
- If a version was just published, it is still only tagged ` + "`next`" + `; ` + "`latest`" + ` was not moved
- Registry propagation can lag behind a publish; wait and run ` + "`typesreg validate`" + ` again
- Compare ` + "`paths.output_dir`" + ` with ` + "`paths.validate_dir`/node_modules/types-registry" + ` by hand`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		typingsDataNotFoundIssue.Id(): typingsDataNotFoundIssue,
		registryFetchFailedIssue.Id(): registryFetchFailedIssue,
		generationMismatchIssue.Id():  generationMismatchIssue,
		outputWriteFailedIssue.Id():   outputWriteFailedIssue,
		publishFailedIssue.Id():       publishFailedIssue,
		installFailedIssue.Id():       installFailedIssue,
		validationMismatchIssue.Id():  validationMismatchIssue,
	}
)

// Values returns every catalogued issue, ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the issue for id, or nil if none is catalogued.
func Get(id Id) *Issue {
	return issues[id]
}
