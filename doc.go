/*
Command hscana searches Hyper Suprime-Cam deepCoadd source catalogs for
diffuse, low surface brightness galaxy candidates.

Contents

  Program overview
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Input is a tree of deepCoadd measurement tables and exposure headers in
FITS format, a manifest of survey tiles, and a table of galaxy groups.
For a tile, hscana reads the source table, computes angular size,
apparent magnitude and surface brightness for every source, and removes
sources by a series of cuts.  Given a galaxy group, it also computes
physical size and absolute magnitude at the group distance and cuts on
those.  Sources surviving all cuts are candidates.

The search command does this for every tile around each of a selection
of groups, records the run in a sqlite database, and writes a list of
candidate positions.

Sample run:

  hscana cat 9347 5,7 --group 1093

  group 1093 D_A 184.2 D_L 197.9 z 0.0370
  tile 9347 5,7 band I
  history [24109 23876 22811 22811 22674 22297 14733 9521 9358 812 811 94 28]
  cuts    flags.pixel.bad=233 flags.pixel.edge=1065 ...
  nan     mag=1874 SB=1980 size=0 absmag=0
   149.81207   2.38512  9ʰ59ᵐ14.90ˢ +2°23′06.4″   23.41  25.12  2.41  2.15 -13.93
  ...

History lists the number of sources at the start and after each cut.
Cut counts are measured against the catalog as already reduced by prior
cuts, so a source failing two flags is counted only by the first.  The
nan line counts undefined values of derived quantities just before
their cuts.


Command line usage

  hscana box ra dec width [height]   Display corners of a sky box.
  hscana tiles ra dec width          List tiles overlapping a box.
  hscana locate ra dec               Display the tile containing a point.
  hscana cat tract patch [-g id]     Build and filter one tile.
  hscana search [-o file] [-q]       Search around selected groups.
  hscana version                     Display version and copyright.

Positions and box sizes are in degrees.  Patches may be given as "5,7" or
"5-7".

Global options:

  --config <file>     config file, default ./hscana.yaml
  -b, --band <band>   G, R, I, Z or Y, default I
  --root <dir>        deepCoadd tree
  --skymap <file>     tile manifest
  --groups <file>     group table
  --wcs               transform moments with the exposure CD matrix
  --log-level, --log-format


Configuration

Settings are read from the config file, then HSCANA_ environment
variables (HSCANA_CUTS_SB_MIN for cuts.sb_min for example), then command
line options.

  data:
    root: deepCoadd
    groups: group_info.csv
    skymap: skymap.csv
    results: hscana.db
  catalog:
    band: I
    use_wcs: false
    pixel_scale: 0.168
    flux_model: cmodel.flux
    shape_model: shape.hsm.moments
  cuts:
    categorical:
      - {column: flags.pixel.bad, value: 0}
      ...
    sb_min: 24
    sb_max: 30
    size_min: 1
    absmag_max: -13
  search:
    box_width_mpc: 3
    z_max: 0.08
    ngal_max: 15
    ra_exclude: [75, 187.5]

A threshold set to none or off skips that cut.  An absent threshold takes
the value shown.  The categorical list replaces the default list
entirely and its cuts run in the order given.


File formats

The deepCoadd tree has a directory per band, tract and patch:

  <root>/HSC-I/9347/5-7/meas.fits
  <root>/HSC-I/9347/5-7/calexp.fits

HDU 1 of meas.fits is a binary table with columns id, parent, coord.ra,
coord.dec (radians), the flags.pixel flags, classification.extendedness,
the flux model column and the .xx, .yy, .xy columns of the shape model.
A missing column is an error.  The primary header of calexp.fits has
FLUXMAG0 and, for --wcs, CD1_1, CD1_2, CD2_1 and CD2_2.

The tile manifest is CSV with header tract,patch,ra_min,ra_max,dec_min,dec_max.

The group table is CSV with at least columns group_id, ra, dec, z (or
group_z), D_A and D_L, distances in Mpc.  Ngal is used if present.  The
first row with a given id is used.


Algorithm outline

1.  Angular size is the fourth root of the determinant of the second
moment matrix, scaled by the pixel scale.  With --wcs the moment matrix
is first transformed by the CD matrix.  A non-positive determinant gives
an undefined size.

2.  Magnitude is -2.5 log10(flux / FLUXMAG0), undefined for non-positive
flux.  Surface brightness is mag + 2.5 log10(pi size^2).

3.  Categorical cuts run in order, each removing sources before the next
is evaluated.  Extendedness is kept above or below .5.

4.  Sources with undefined surface brightness are set to -999 and fail
the lower surface brightness cut.  Then the upper cut runs.

5.  With a group, physical size is size * D_A / 206265 * 1000 kpc and
absolute magnitude is mag - 5 log10(D_L 1e6) + 5.  Undefined sizes fail
the size cut the same way.

6.  The search box around a group is 3 Mpc across at distance D_A.  Its
RA extent is widened by 1/cos(dec) separately at its upper and lower
edges.  A box with a diagonal over 90' is larger than a tract and is
logged as a warning.

-------------
Public domain.
*/
package main
