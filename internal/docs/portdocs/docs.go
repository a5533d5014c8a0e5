// Copyright 2026 The kpt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package portdocs holds the help text of the portpatch commands.
package portdocs

var READMEShort = `Maintain a fork of an upstream tree as a set of patches`
var READMELong = `
portpatch keeps one or more porting targets in sync with an upstream git
reference. The pristine upstream tree is extracted into the upstream
directory, every target gets a working tree built from it and the target's
patch set, and edits to a working tree are turned back into patches.

The configuration is read from the Portfile in the current directory, or
from the file given with --config.

Exit status:

  0  finished without differences or rejects
  1  finished with differences or rejected hunks
  2  failed
`
var READMEExamples = `
  # materialize the working trees
  $ portpatch setup

  # after editing workspace/fabric, regenerate its patches
  $ portpatch generate

  # remove the upstream and working trees
  $ portpatch clean
`

var SetupShort = `Extract upstream and build every working tree`
var SetupLong = `
  portpatch setup [flags]

Clears the upstream and workspace directories, extracts the configured
upstream ref and builds the working tree of every target by applying its
patch set. Targets without patches get a plain copy of upstream.

Hunks that do not apply are written to rejects/<target>/<path>.rej and the
command exits with status 1 after every target was processed.

The commit marker is written when it does not exist yet. If it records a
different commit than the ref resolves to, a warning is printed.
`
var SetupExamples = `
  # set up using the Portfile in the current directory
  $ portpatch setup

  # set up against a different upstream branch
  $ PORTPATCH_UPSTREAM_REF=1.21.x portpatch setup
`

var CleanShort = `Remove the upstream, workspace and scratch directories`
var CleanLong = `
  portpatch clean [flags]

Removes the upstream snapshot, every working tree and the scratch
directory. Patches and the commit marker are kept. Running clean when
nothing exists is not an error.
`
var CleanExamples = `
  $ portpatch clean
`

var UpdateRefShort = `Extract upstream and record its commit`
var UpdateRefLong = `
  portpatch update-ref [flags]

Extracts the configured upstream ref into the upstream directory and writes
its commit id to the commit marker. Working trees are not touched.

A missing or placeholder ref is an error. Failures while extracting or
writing the marker are logged and the command still succeeds.
`
var UpdateRefExamples = `
  $ portpatch update-ref
`

var GenerateShort = `Regenerate the patch set of every target`
var GenerateLong = `
  portpatch generate [flags]

Compares every working tree with the upstream directory and rewrites
patches/<target> with one patch per changed, added or removed file. Paths
matching an ignore entry of the Portfile are skipped.

Requires a prior setup.
`
var GenerateExamples = `
  $ portpatch generate

  # exit with status 1 when any target differs from upstream
  $ portpatch generate --exit-code
`

var RebuildShort = `Rebuild every patch set from the target sources`
var RebuildLong = `
  portpatch rebuild [flags]

Deletes every patch set, refreshes the upstream commit and regenerates the
patches from the source directory of each target. The upstream and working
trees are removed when done.

Use this when patches and working trees no longer match each other.
`
var RebuildExamples = `
  $ portpatch rebuild
`

var SplitShort = `Copy every working tree to its source directory`
var SplitLong = `
  portpatch split [flags]

Replaces the source directory of every target with a copy of its working
tree. Requires a prior setup.
`
var SplitExamples = `
  $ portpatch split
`

var StatusShort = `Show the state of every target`
var StatusLong = `
  portpatch status [flags]

Prints the recorded upstream commit and, per target, its lifecycle state,
the number of patches and the number of files with rejects.

States:

  Uninitialized       no upstream tree
  UpstreamFetched     upstream tree but no working tree
  WorkingTreeReady    working tree ready for edits
  PatchesRegenerated  patches written after the working tree was built
`
var StatusExamples = `
  $ portpatch status
`

var ExtractShort = `Write the tree of a commit to a directory`
var ExtractLong = `
  portpatch tools extract REPO REF DIR

Args:

  REPO:
    Location of the git repository. A subdirectory of a work tree works too.

  REF:
    Branch, tag, full or abbreviated commit id.

  DIR:
    Destination directory. Existing files are replaced, others are left.

Prints the resolved commit id. The repository's work tree, index and HEAD
are not modified.
`
var ExtractExamples = `
  $ portpatch tools extract . upstream/main /tmp/upstream
`

var DiffShort = `Write the patches between two trees`
var DiffLong = `
  portpatch tools diff BASE WORKING OUT [flags]

Args:

  BASE:
    The tree before the changes.

  WORKING:
    The tree after the changes.

  OUT:
    Directory receiving one <path>.patch file per differing file.

Exits with status 1 when differences were found.
`
var DiffExamples = `
  $ portpatch tools diff upstream workspace/fabric patches/fabric --ignore .git --ignore build
`

var ApplyShort = `Rebuild a tree from a base tree and patches`
var ApplyLong = `
  portpatch tools apply BASE PATCHES OUT REJECTS [flags]

Args:

  BASE:
    The tree the patches were generated against.

  PATCHES:
    Directory of <path>.patch files. When it is missing or empty OUT is a
    copy of BASE.

  OUT:
    Directory receiving the patched tree.

  REJECTS:
    Directory receiving <path>.rej files for hunks that do not apply.

Exits with status 1 when hunks were rejected.
`
var ApplyExamples = `
  $ portpatch tools apply upstream patches/fabric workspace/fabric rejects/fabric --mode fuzzy
`

var ToolsShort = `Low level tree operations`
var ToolsLong = `
The tools commands expose the building blocks of the porting workflow. They
take every directory as an argument and do not read a Portfile.
`
var ToolsExamples = `
  # write upstream/main into a directory
  $ portpatch tools extract . upstream/main /tmp/base

  # turn the edits in /tmp/work into patches
  $ portpatch tools diff /tmp/base /tmp/work /tmp/patches

  # replay them on the base tree
  $ portpatch tools apply /tmp/base /tmp/patches /tmp/out /tmp/rejects
`
